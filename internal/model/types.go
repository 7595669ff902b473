package model

import (
	"encoding/json"
	"strings"
)

// -----------------------------------------------------------------------------
// Telemetry
// -----------------------------------------------------------------------------

// Telemetry is the vehicle state reported by the simulator.
type Telemetry struct {
	Vehicle *string `json:"vehicle,omitempty"` // Vehicle name
	Track   *string `json:"track,omitempty"`   // Track name

	Speed      *float64 `json:"speed,omitempty"`        // km/h
	RPM        *float64 `json:"rpm,omitempty"`          // Engine RPM
	RPMMax     *float64 `json:"rpm_max,omitempty"`      // Rev limit
	Gear       *int     `json:"gear,omitempty"`         // -1 reverse, 0 neutral
	Fuel       *float64 `json:"fuel,omitempty"`         // Liters
	FuelPct    *float64 `json:"fuel_pct,omitempty"`     // Percent of tank
	FuelPerLap *float64 `json:"fuel_per_lap,omitempty"` // Liters per lap

	Throttle *float64 `json:"throttle,omitempty"` // 0-100
	Brake    *float64 `json:"brake,omitempty"`    // 0-100
	Steering *float64 `json:"steering,omitempty"` // -100..100
	Clutch   *float64 `json:"clutch,omitempty"`   // 0-100

	GLat  *float64 `json:"g_lat,omitempty"`
	GLong *float64 `json:"g_long,omitempty"`

	TireTemp     CornerReading `json:"tire_temp,omitzero"`     // °C
	TirePressure CornerReading `json:"tire_pressure,omitzero"` // kPa
	TireWear     CornerReading `json:"tire_wear,omitzero"`     // Percent remaining
	TireGrip     CornerReading `json:"tire_grip,omitzero"`     // Percent
	BrakeTemp    CornerReading `json:"brake_temp,omitzero"`    // °C

	RideHeightFront *float64 `json:"ride_height_front,omitempty"` // mm
	RideHeightRear  *float64 `json:"ride_height_rear,omitempty"`  // mm
	Rake            *float64 `json:"rake,omitempty"`              // mm

	WaterTemp *float64 `json:"water_temp,omitempty"` // °C
	OilTemp   *float64 `json:"oil_temp,omitempty"`   // °C

	LapNumber *int     `json:"lap_number,omitempty"`
	Sector    *int     `json:"sector,omitempty"`
	Position  *int     `json:"position,omitempty"` // Overall place
	TotalLaps *int     `json:"total_laps,omitempty"`
	BestLap   *float64 `json:"best_lap,omitempty"` // Seconds
	LastLap   *float64 `json:"last_lap,omitempty"` // Seconds
	InPits    *bool    `json:"in_pits,omitempty"`
	Pitstops  *int     `json:"pitstops,omitempty"`

	TrackTemp   *float64 `json:"track_temp,omitempty"`   // °C
	AmbientTemp *float64 `json:"ambient_temp,omitempty"` // °C
	Rain        *float64 `json:"rain,omitempty"`         // 0-1
	Wetness     *float64 `json:"wetness,omitempty"`      // 0-1
	SessionType *string  `json:"session_type,omitempty"`
}

// Merge overwrites the fields present in p.
func (t *Telemetry) Merge(p *Telemetry) {
	if p == nil {
		return
	}
	mergeString(&t.Vehicle, p.Vehicle)
	mergeString(&t.Track, p.Track)
	mergeFloat(&t.Speed, p.Speed)
	mergeFloat(&t.RPM, p.RPM)
	mergeFloat(&t.RPMMax, p.RPMMax)
	mergeInt(&t.Gear, p.Gear)
	mergeFloat(&t.Fuel, p.Fuel)
	mergeFloat(&t.FuelPct, p.FuelPct)
	mergeFloat(&t.FuelPerLap, p.FuelPerLap)
	mergeFloat(&t.Throttle, p.Throttle)
	mergeFloat(&t.Brake, p.Brake)
	mergeFloat(&t.Steering, p.Steering)
	mergeFloat(&t.Clutch, p.Clutch)
	mergeFloat(&t.GLat, p.GLat)
	mergeFloat(&t.GLong, p.GLong)
	t.TireTemp.Merge(p.TireTemp)
	t.TirePressure.Merge(p.TirePressure)
	t.TireWear.Merge(p.TireWear)
	t.TireGrip.Merge(p.TireGrip)
	t.BrakeTemp.Merge(p.BrakeTemp)
	mergeFloat(&t.RideHeightFront, p.RideHeightFront)
	mergeFloat(&t.RideHeightRear, p.RideHeightRear)
	mergeFloat(&t.Rake, p.Rake)
	mergeFloat(&t.WaterTemp, p.WaterTemp)
	mergeFloat(&t.OilTemp, p.OilTemp)
	mergeInt(&t.LapNumber, p.LapNumber)
	mergeInt(&t.Sector, p.Sector)
	mergeInt(&t.Position, p.Position)
	mergeInt(&t.TotalLaps, p.TotalLaps)
	mergeFloat(&t.BestLap, p.BestLap)
	mergeFloat(&t.LastLap, p.LastLap)
	mergeBool(&t.InPits, p.InPits)
	mergeInt(&t.Pitstops, p.Pitstops)
	mergeFloat(&t.TrackTemp, p.TrackTemp)
	mergeFloat(&t.AmbientTemp, p.AmbientTemp)
	mergeFloat(&t.Rain, p.Rain)
	mergeFloat(&t.Wetness, p.Wetness)
	mergeString(&t.SessionType, p.SessionType)
}

// Clone returns a deep copy.
func (t *Telemetry) Clone() *Telemetry {
	if t == nil {
		return nil
	}
	c := &Telemetry{}
	c.Merge(t)
	return c
}

// -----------------------------------------------------------------------------
// Analysis
// -----------------------------------------------------------------------------

// Analysis is the producer's handling analysis for the current lap window.
type Analysis struct {
	Status          *string  `json:"status,omitempty"` // "collecting" or "ready"
	LapNumber       *int     `json:"lap_number,omitempty"`
	Samples         *int     `json:"samples,omitempty"`
	UndersteerPct   *float64 `json:"understeer_pct,omitempty"`    // 0-100
	OversteerPct    *float64 `json:"oversteer_pct,omitempty"`     // 0-100
	TractionLossPct *float64 `json:"traction_loss_pct,omitempty"` // 0-100
	CornerPhase     *string  `json:"corner_phase,omitempty"`      // entry, mid, exit, straight
	EntryBalance    *float64 `json:"entry_balance,omitempty"`
	MidBalance      *float64 `json:"mid_balance,omitempty"`
	ExitBalance     *float64 `json:"exit_balance,omitempty"`

	// Problems maps a problem name to its score. Nil when not reported;
	// a reported map replaces the previous one.
	Problems map[string]float64 `json:"problems,omitempty"`
}

// Merge overwrites the fields present in p.
func (a *Analysis) Merge(p *Analysis) {
	if p == nil {
		return
	}
	mergeString(&a.Status, p.Status)
	mergeInt(&a.LapNumber, p.LapNumber)
	mergeInt(&a.Samples, p.Samples)
	mergeFloat(&a.UndersteerPct, p.UndersteerPct)
	mergeFloat(&a.OversteerPct, p.OversteerPct)
	mergeFloat(&a.TractionLossPct, p.TractionLossPct)
	mergeString(&a.CornerPhase, p.CornerPhase)
	mergeFloat(&a.EntryBalance, p.EntryBalance)
	mergeFloat(&a.MidBalance, p.MidBalance)
	mergeFloat(&a.ExitBalance, p.ExitBalance)
	if p.Problems != nil {
		a.Problems = make(map[string]float64, len(p.Problems))
		for k, v := range p.Problems {
			a.Problems[k] = v
		}
	}
}

// Clone returns a deep copy.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	c := &Analysis{}
	c.Merge(a)
	return c
}

// -----------------------------------------------------------------------------
// Strategy
// -----------------------------------------------------------------------------

// Strategy holds the producer's fuel and tire predictions.
type Strategy struct {
	FuelLapsRemaining  *float64 `json:"fuel_laps_remaining,omitempty"`
	TireLapsRemaining  *float64 `json:"tire_laps_remaining,omitempty"`
	PitWindowStart     *int     `json:"pit_window_start,omitempty"` // Lap
	PitWindowEnd       *int     `json:"pit_window_end,omitempty"`   // Lap
	IsCritical         *bool    `json:"is_critical,omitempty"`
	RecommendedFuelAdd *float64 `json:"recommended_fuel_add,omitempty"` // Liters
}

// Merge overwrites the fields present in p.
func (s *Strategy) Merge(p *Strategy) {
	if p == nil {
		return
	}
	mergeFloat(&s.FuelLapsRemaining, p.FuelLapsRemaining)
	mergeFloat(&s.TireLapsRemaining, p.TireLapsRemaining)
	mergeInt(&s.PitWindowStart, p.PitWindowStart)
	mergeInt(&s.PitWindowEnd, p.PitWindowEnd)
	mergeBool(&s.IsCritical, p.IsCritical)
	mergeFloat(&s.RecommendedFuelAdd, p.RecommendedFuelAdd)
}

// Clone returns a deep copy.
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return nil
	}
	c := &Strategy{}
	c.Merge(s)
	return c
}

// -----------------------------------------------------------------------------
// Recommendations
// -----------------------------------------------------------------------------

// Recommendation is a single setup or driving suggestion.
type Recommendation struct {
	Title      string  `json:"title"`
	Priority   int     `json:"priority"` // Lower is more urgent
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"` // 0-1
	Category   string  `json:"category,omitempty"`
	Parameter  string  `json:"parameter,omitempty"` // Setup parameter, e.g. "rear_wing"
	Direction  string  `json:"direction,omitempty"` // "increase" or "decrease"
	Reason     string  `json:"reason,omitempty"`
}

// CloneRecommendations copies the list, preserving nil.
func CloneRecommendations(recs []Recommendation) []Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	return out
}

// -----------------------------------------------------------------------------
// Live timing
// -----------------------------------------------------------------------------

// ThreatLevel grades how much a nearby car threatens the player's position.
type ThreatLevel string

const (
	ThreatNone     ThreatLevel = "none"
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ParseThreatLevel normalizes a level name. Unknown levels map to ThreatNone.
func ParseThreatLevel(s string) ThreatLevel {
	switch l := ThreatLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case ThreatNone, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return l
	}
	return ThreatNone
}

// UnmarshalJSON decodes a level name through ParseThreatLevel.
func (l *ThreatLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseThreatLevel(s)
	return nil
}

// Threat is a nearby competitor.
type Threat struct {
	DriverName  string      `json:"driver_name"`
	Position    int         `json:"position"`
	Gap         float64     `json:"gap"` // Seconds, positive = behind the player
	ThreatLevel ThreatLevel `json:"threat_level"`
	PaceDelta   float64     `json:"pace_delta"` // Seconds per lap vs player, negative = faster
}

// LiveTiming is the player's race position and surroundings.
type LiveTiming struct {
	Position    *int     `json:"position,omitempty"`
	GapAhead    *float64 `json:"gap_ahead,omitempty"`
	GapBehind   *float64 `json:"gap_behind,omitempty"`
	GapToLeader *float64 `json:"gap_to_leader,omitempty"`
	Threats     []Threat `json:"threats,omitempty"` // Nil when not reported
}

// Merge overwrites the fields present in p. A reported threat list replaces the old one.
func (l *LiveTiming) Merge(p *LiveTiming) {
	if p == nil {
		return
	}
	mergeInt(&l.Position, p.Position)
	mergeFloat(&l.GapAhead, p.GapAhead)
	mergeFloat(&l.GapBehind, p.GapBehind)
	mergeFloat(&l.GapToLeader, p.GapToLeader)
	if p.Threats != nil {
		l.Threats = make([]Threat, len(p.Threats))
		copy(l.Threats, p.Threats)
	}
}

// Clone returns a deep copy.
func (l *LiveTiming) Clone() *LiveTiming {
	if l == nil {
		return nil
	}
	c := &LiveTiming{}
	c.Merge(l)
	return c
}

// -----------------------------------------------------------------------------
// Producer status
// -----------------------------------------------------------------------------

// Status is the producer's own health report.
type Status struct {
	SimConnected *bool   `json:"sim_connected,omitempty"` // Producer is attached to the simulator
	Message      *string `json:"message,omitempty"`
	Version      *string `json:"version,omitempty"`
	Clients      *int    `json:"clients,omitempty"`
}

// Merge overwrites the fields present in p.
func (s *Status) Merge(p *Status) {
	if p == nil {
		return
	}
	mergeBool(&s.SimConnected, p.SimConnected)
	mergeString(&s.Message, p.Message)
	mergeString(&s.Version, p.Version)
	mergeInt(&s.Clients, p.Clients)
}

// Clone returns a deep copy.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	c := &Status{}
	c.Merge(s)
	return c
}

func mergeFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = cloneFloat(src)
	}
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		*dst = cloneInt(src)
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		*dst = cloneBool(src)
	}
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = cloneString(src)
	}
}
