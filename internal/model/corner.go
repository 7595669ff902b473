package model

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Corner is a wheel position.
type Corner uint8

const (
	FL Corner = iota
	FR
	RL
	RR
)

// Corners lists the wheel positions in display order.
var Corners = [4]Corner{FL, FR, RL, RR}

// String returns the upper-case corner code.
func (c Corner) String() string {
	switch c {
	case FL:
		return "FL"
	case FR:
		return "FR"
	case RL:
		return "RL"
	case RR:
		return "RR"
	}
	return "??"
}

// Per-axis defaults for a corner the producer has not reported.
// Temperatures and pressures fall back to 0, wear and grip to 100 (fresh, full grip).
const (
	DefaultTireTemp     = 0.0
	DefaultTirePressure = 0.0
	DefaultBrakeTemp    = 0.0
	DefaultTireWear     = 100.0
	DefaultTireGrip     = 100.0
)

// CornerReading holds one optional value per wheel.
type CornerReading struct {
	FL *float64 `json:"fl,omitempty"`
	FR *float64 `json:"fr,omitempty"`
	RL *float64 `json:"rl,omitempty"`
	RR *float64 `json:"rr,omitempty"`
}

// UnmarshalJSON accepts corner keys in any case ("FL" and "fl").
// Unknown keys and null values are ignored. When one corner appears under
// several spellings the upper-case key wins.
func (c *CornerReading) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// Descending byte order applies "FL" after "Fl", "fL" and "fl".
	keys := slices.Sorted(maps.Keys(raw))
	slices.Reverse(keys)
	for _, k := range keys {
		v := raw[k]
		if v == nil {
			continue
		}
		switch strings.ToUpper(k) {
		case "FL":
			c.FL = Float(*v)
		case "FR":
			c.FR = Float(*v)
		case "RL":
			c.RL = Float(*v)
		case "RR":
			c.RR = Float(*v)
		}
	}
	return nil
}

// IsZero reports whether no corner is present.
func (c CornerReading) IsZero() bool {
	return c.FL == nil && c.FR == nil && c.RL == nil && c.RR == nil
}

// Get returns the raw value for a corner, nil if absent.
func (c CornerReading) Get(corner Corner) *float64 {
	switch corner {
	case FL:
		return c.FL
	case FR:
		return c.FR
	case RL:
		return c.RL
	case RR:
		return c.RR
	}
	return nil
}

// Set stores a copy of v for the corner.
func (c *CornerReading) Set(corner Corner, v float64) {
	switch corner {
	case FL:
		c.FL = Float(v)
	case FR:
		c.FR = Float(v)
	case RL:
		c.RL = Float(v)
	case RR:
		c.RR = Float(v)
	}
}

// Value returns the corner value or def when absent.
func (c CornerReading) Value(corner Corner, def float64) float64 {
	if v := c.Get(corner); v != nil {
		return *v
	}
	return def
}

// Resolve returns all four corners, substituting def for absent ones.
func (c CornerReading) Resolve(def float64) [4]float64 {
	var out [4]float64
	for i, corner := range Corners {
		out[i] = c.Value(corner, def)
	}
	return out
}

// Merge overwrites the corners present in p.
func (c *CornerReading) Merge(p CornerReading) {
	for _, corner := range Corners {
		if v := p.Get(corner); v != nil {
			c.Set(corner, *v)
		}
	}
}

// Clone returns a copy that shares no pointers with c.
func (c CornerReading) Clone() CornerReading {
	return CornerReading{
		FL: cloneFloat(c.FL),
		FR: cloneFloat(c.FR),
		RL: cloneFloat(c.RL),
		RR: cloneFloat(c.RR),
	}
}
