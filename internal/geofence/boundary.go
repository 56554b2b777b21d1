package geofence

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NoFixPolicy decides what IsInside answers for the (0, 0) no-fix position.
type NoFixPolicy int

const (
	// NoFixInside treats a missing fix as inside, so a payload without GPS is never
	// cut down by the geofence. The altitude ceiling still applies.
	NoFixInside NoFixPolicy = iota
	// NoFixOutside treats a missing fix as a geofence breach.
	NoFixOutside
)

func (p NoFixPolicy) inside() bool { return p != NoFixOutside }

// String returns the config spelling of the policy.
func (p NoFixPolicy) String() string {
	if p == NoFixOutside {
		return "outside"
	}
	return "inside"
}

// ParseNoFixPolicy parses "inside" or "outside". An empty string means inside.
func ParseNoFixPolicy(s string) (NoFixPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inside":
		return NoFixInside, nil
	case "outside":
		return NoFixOutside, nil
	}
	return NoFixInside, fmt.Errorf("geofence: unknown no-fix policy %q", s)
}

// UnmarshalYAML accepts the policy name as a scalar.
func (p *NoFixPolicy) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseNoFixPolicy(value.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalYAML writes the policy name.
func (p NoFixPolicy) MarshalYAML() (any, error) { return p.String(), nil }

// UnmarshalYAML decodes a vertex written as a [lon, lat] flow sequence.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("geofence: line %d: vertex must be [lon, lat]: %w", value.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("geofence: line %d: vertex must be [lon, lat], got %d values", value.Line, len(pair))
	}
	p.Lon, p.Lat = pair[0], pair[1]
	return nil
}

// MarshalYAML writes the vertex as [lon, lat].
func (p Point) MarshalYAML() (any, error) { return []float64{p.Lon, p.Lat}, nil }

// DefaultBoundary is the mission area flown when the config gives no boundary:
// southern and central England, keeping clear of the coast and the Welsh hills.
var DefaultBoundary = Boundary{
	{0.9705386, 51.1641209},
	{0.1136050, 51.4388757},
	{0.6189761, 51.6506805},
	{1.1792788, 52.3741918},
	{1.0254702, 52.6749843},
	{0.2564272, 52.6083195},
	{-0.4686704, 52.7548480},
	{-0.0731626, 53.1914890},
	{-0.3697935, 53.6237282},
	{-1.0399595, 53.9223934},
	{-2.1166196, 53.8706042},
	{-2.7757993, 53.3819533},
	{-3.3580747, 52.8279280},
	{-3.2591978, 51.8818499},
	{-2.1605650, 51.9496158},
	{-1.8419614, 51.6370454},
	{-2.8307310, 51.1158697},
	{-3.4569517, 50.8114203},
	{-1.4354673, 50.9638944},
	{-0.0511900, 51.0468518},
}
