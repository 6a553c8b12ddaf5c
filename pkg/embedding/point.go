package embedding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a word positioned in 3D space.
type Point struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Coord decodes a coordinate that arrives as either a JSON number or a
// numeric string. Empty strings, non-numeric strings, and non-finite
// values are rejected.
type Coord float64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coord) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return fmt.Errorf("embedding: coordinate is null")
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("embedding: malformed coordinate string %s", s)
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			return fmt.Errorf("embedding: empty coordinate string")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("embedding: non-numeric coordinate %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("embedding: non-finite coordinate %q", s)
	}
	*c = Coord(v)
	return nil
}

// wirePoint is the service response shape. Coordinates are pointers so
// a missing field is distinguishable from zero.
type wirePoint struct {
	Label string `json:"label"`
	X     *Coord `json:"x"`
	Y     *Coord `json:"y"`
	Z     *Coord `json:"z"`
}

// decodePoint parses a service response body into a Point. The word is
// used as the label when the service omits one.
func decodePoint(data []byte, word string) (Point, error) {
	var wire wirePoint
	if err := json.Unmarshal(data, &wire); err != nil {
		return Point{}, fmt.Errorf("embedding: decode response: %w", err)
	}
	if wire.X == nil || wire.Y == nil || wire.Z == nil {
		return Point{}, fmt.Errorf("embedding: response missing coordinates")
	}
	label := wire.Label
	if label == "" {
		label = word
	}
	return Point{
		Label: label,
		X:     float64(*wire.X),
		Y:     float64(*wire.Y),
		Z:     float64(*wire.Z),
	}, nil
}
