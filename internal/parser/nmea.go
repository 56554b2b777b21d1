package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"HabTracker/internal/model"
)

// ErrChecksum is returned for NMEA sentences whose checksum does not match.
var ErrChecksum = errors.New("nmea checksum mismatch")

// IsGGA reports whether line is a GGA sentence from any talker (GP, GN, GL...).
func IsGGA(line string) bool {
	return len(line) > 6 && line[0] == '$' && line[3:6] == "GGA"
}

// ParseGGA decodes a GGA sentence. A sentence with fix quality 0 decodes without
// error and carries only the time; callers check GpsFix.Valid.
func ParseGGA(line string) (model.GpsFix, error) {
	body, err := nmeaBody(strings.TrimSpace(line))
	if err != nil {
		return model.GpsFix{}, err
	}
	parts := strings.Split(body, ",")
	if len(parts) < 10 || !strings.HasSuffix(parts[0], "GGA") {
		return model.GpsFix{}, fmt.Errorf("not a GGA sentence: %q", line)
	}

	var fix model.GpsFix
	if fix.Hours, fix.Minutes, fix.Seconds, err = parseNMEATime(parts[1]); err != nil {
		return model.GpsFix{}, err
	}
	if parts[6] != "" {
		if fix.Quality, err = strconv.Atoi(parts[6]); err != nil {
			return model.GpsFix{}, fmt.Errorf("invalid fix quality %q", parts[6])
		}
	}
	if fix.Quality == 0 {
		return fix, nil
	}
	if fix.Latitude, err = ParseNMEACoord(parts[2], parts[3]); err != nil {
		return model.GpsFix{}, fmt.Errorf("latitude: %w", err)
	}
	if fix.Longitude, err = ParseNMEACoord(parts[4], parts[5]); err != nil {
		return model.GpsFix{}, fmt.Errorf("longitude: %w", err)
	}
	if parts[7] != "" {
		if fix.Satellites, err = strconv.Atoi(parts[7]); err != nil {
			return model.GpsFix{}, fmt.Errorf("invalid satellites %q", parts[7])
		}
	}
	if fix.Altitude, err = strconv.ParseFloat(parts[9], 64); err != nil {
		return model.GpsFix{}, fmt.Errorf("invalid altitude %q", parts[9])
	}
	return fix, nil
}

// FormatGGA renders fix as a $GPGGA sentence with checksum.
func FormatGGA(fix model.GpsFix) string {
	hms := fmt.Sprintf("%02d%02d%02d.00", fix.Hours, fix.Minutes, fix.Seconds)
	var body string
	if fix.Quality == 0 {
		body = fmt.Sprintf("GPGGA,%s,,,,,0,00,99.9,,M,,M,,", hms)
	} else {
		lat, ns := ToNMEACoord(fix.Latitude, true)
		lon, ew := ToNMEACoord(fix.Longitude, false)
		body = fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,%d,%02d,0.9,%.1f,M,47.0,M,,",
			hms, lat, ns, lon, ew, fix.Quality, fix.Satellites, fix.Altitude)
	}
	return fmt.Sprintf("$%s*%02X", body, NMEAChecksum(body))
}

// NMEAChecksum XORs every byte of the sentence body between '$' and '*'.
func NMEAChecksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

// nmeaBody strips the framing and verifies the checksum.
func nmeaBody(line string) (string, error) {
	if !strings.HasPrefix(line, "$") {
		return "", fmt.Errorf("missing $ in %q", line)
	}
	star := strings.LastIndexByte(line, '*')
	if star < 0 || star+3 != len(line) {
		return "", fmt.Errorf("missing checksum in %q", line)
	}
	body := line[1:star]
	want, err := strconv.ParseUint(line[star+1:], 16, 8)
	if err != nil {
		return "", fmt.Errorf("invalid checksum in %q", line)
	}
	if NMEAChecksum(body) != byte(want) {
		return "", ErrChecksum
	}
	return body, nil
}

func parseNMEATime(s string) (h, m, sec int, err error) {
	if s == "" {
		return 0, 0, 0, nil
	}
	if len(s) < 6 {
		return 0, 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if h, err = strconv.Atoi(s[0:2]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if m, err = strconv.Atoi(s[2:4]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if sec, err = strconv.Atoi(s[4:6]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return h, m, sec, nil
}

// ParseNMEACoord converts NMEA ddmm.mmmm (or dddmm.mmmm) to decimal degrees.
// For example, 5130.0000,N -> 51.5
func ParseNMEACoord(value string, dir string) (float64, error) {
	if len(value) < 4 {
		return 0, fmt.Errorf("invalid nmea coord %q", value)
	}
	var degPart, minPart string
	// latitude has 2 digit degrees vs lon 3 digits; detect by dir
	switch dir {
	case "N", "S":
		degPart, minPart = value[:2], value[2:]
	case "E", "W":
		degPart, minPart = value[:3], value[3:]
	default:
		return 0, fmt.Errorf("invalid nmea direction %q", dir)
	}
	deg, err := strconv.ParseFloat(degPart, 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return 0, err
	}
	dec := deg + min/60.0
	if dir == "S" || dir == "W" {
		dec = -dec
	}
	return dec, nil
}

// ToNMEACoord converts decimal degrees to ddmm.mmmm and its hemisphere letter.
func ToNMEACoord(dec float64, isLat bool) (string, string) {
	dir := "N"
	if !isLat {
		dir = "E"
	}
	if dec < 0 {
		dec = -dec
		if isLat {
			dir = "S"
		} else {
			dir = "W"
		}
	}
	deg := int(dec)
	min := math.Round((dec-float64(deg))*60*10000) / 10000
	if min >= 60 {
		deg++
		min = 0
	}
	if isLat {
		return fmt.Sprintf("%02d%07.4f", deg, min), dir
	}
	return fmt.Sprintf("%03d%07.4f", deg, min), dir
}
