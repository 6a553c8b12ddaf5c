package embedding

import (
	"encoding/json"
	"testing"
)

func TestCoordAcceptsNumbersAndNumericStrings(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`1.25`, 1.25},
		{`-3`, -3},
		{`0`, 0},
		{`"2.5"`, 2.5},
		{`"-0.01"`, -0.01},
		{`" 4.2 "`, 4.2},
		{`"1e2"`, 100},
	}
	for _, tt := range tests {
		var c Coord
		if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
			t.Errorf("unmarshal %s: %v", tt.in, err)
			continue
		}
		if float64(c) != tt.want {
			t.Errorf("coord %s = %v, want %v", tt.in, float64(c), tt.want)
		}
	}
}

func TestCoordRejectsBadValues(t *testing.T) {
	for _, in := range []string{`null`, `""`, `"  "`, `"abc"`, `"1.2.3"`, `"Inf"`, `"NaN"`, `true`, `[1]`} {
		var c Coord
		if err := json.Unmarshal([]byte(in), &c); err == nil {
			t.Errorf("unmarshal %s succeeded with %v, want error", in, float64(c))
		}
	}
}

func TestDecodePoint(t *testing.T) {
	p, err := decodePoint([]byte(`{"label":"ocean","x":1.5,"y":"-2.25","z":0}`), "ocean")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Label != "ocean" || p.X != 1.5 || p.Y != -2.25 || p.Z != 0 {
		t.Fatalf("point = %+v", p)
	}
}

func TestDecodePointDefaultsLabel(t *testing.T) {
	p, err := decodePoint([]byte(`{"x":1,"y":2,"z":3}`), "river")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Label != "river" {
		t.Fatalf("label = %q, want river", p.Label)
	}
}

func TestDecodePointRejectsMissingCoordinates(t *testing.T) {
	for _, body := range []string{
		`{"label":"w","x":1,"y":2}`,
		`{"label":"w","x":null,"y":2,"z":3}`,
		`{"label":"w"}`,
		`{}`,
		`not json`,
	} {
		if _, err := decodePoint([]byte(body), "w"); err == nil {
			t.Errorf("decode %s succeeded, want error", body)
		}
	}
}
