package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"HabTracker/internal/model"
)

const csvFields = 20

// CSVParser implements Parser with comma separated sentences framed by "$$" and
// closed by a CRC16-CCITT checksum.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodeTelemetry converts Telemetry into a checksummed sentence.
func (p *CSVParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	if t.Callsign == "" || strings.ContainsAny(t.Callsign, ",*$") {
		return "", fmt.Errorf("invalid callsign %q", t.Callsign)
	}
	cut := 0
	if t.CutDown {
		cut = 1
	}
	body := fmt.Sprintf("%s,%d,%s,%.5f,%.5f,%d,%d,%.1f,%.2f,%.1f,%.1f,%.0f,%.1f,%d,%.5f,%.5f,%.5f,%.5f,%.5f,%s",
		t.Callsign, t.Counter, t.Time, t.Lat, t.Lon, t.Alt, t.Sats, t.AscentRate,
		t.Battery, t.IntTemp, t.ExtTemp, t.Pressure, t.Humidity, cut,
		t.NO2WE, t.NO2AE, t.Solar0, t.Solar1, t.Solar2, t.Mode)
	return fmt.Sprintf("$$%s*%04X", body, CRC16(body)), nil
}

// DecodeTelemetry parses a sentence into Telemetry. The checksum is verified when present.
func (p *CSVParser) DecodeTelemetry(line string) (model.Telemetry, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$$") {
		return model.Telemetry{}, errors.New("missing $$ prefix")
	}
	body := line[2:]
	if i := strings.LastIndexByte(body, '*'); i >= 0 {
		want, err := strconv.ParseUint(body[i+1:], 16, 16)
		if err != nil {
			return model.Telemetry{}, fmt.Errorf("invalid checksum %q", body[i+1:])
		}
		body = body[:i]
		if got := CRC16(body); uint64(got) != want {
			return model.Telemetry{}, fmt.Errorf("checksum mismatch: got %04X want %04X", got, want)
		}
	}

	fields := strings.Split(body, ",")
	if len(fields) != csvFields {
		return model.Telemetry{}, fmt.Errorf("expected %d fields, got %d", csvFields, len(fields))
	}
	f := fieldReader{fields: fields}
	t := model.Telemetry{
		Callsign:   fields[0],
		Counter:    uint32(f.uint(1, "counter")),
		Time:       fields[2],
		Lat:        f.float(3, "lat"),
		Lon:        f.float(4, "lon"),
		Alt:        f.int(5, "alt"),
		Sats:       int(f.int(6, "sats")),
		AscentRate: f.float(7, "ascent_rate"),
		Battery:    f.float(8, "battery"),
		IntTemp:    f.float(9, "internal_temp"),
		ExtTemp:    f.float(10, "external_temp"),
		Pressure:   f.float(11, "pressure"),
		Humidity:   f.float(12, "humidity"),
		CutDown:    f.int(13, "cut_down") != 0,
		NO2WE:      f.float(14, "no2_we"),
		NO2AE:      f.float(15, "no2_ae"),
		Solar0:     f.float(16, "solar0"),
		Solar1:     f.float(17, "solar1"),
		Solar2:     f.float(18, "solar2"),
		Mode:       fields[19],
	}
	if f.err != nil {
		return model.Telemetry{}, f.err
	}
	return t, nil
}

// fieldReader parses numeric fields and keeps the first error.
type fieldReader struct {
	fields []string
	err    error
}

func (r *fieldReader) float(i int, name string) float64 {
	v, err := strconv.ParseFloat(r.fields[i], 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s", name)
	}
	return v
}

func (r *fieldReader) int(i int, name string) int64 {
	v, err := strconv.ParseInt(r.fields[i], 10, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s", name)
	}
	return v
}

func (r *fieldReader) uint(i int, name string) uint64 {
	v, err := strconv.ParseUint(r.fields[i], 10, 32)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s", name)
	}
	return v
}

// CRC16 is the CRC16-CCITT (poly 0x1021, seed 0xFFFF) used on telemetry sentences.
func CRC16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
