package decoder

import (
	"encoding/json"
	"fmt"

	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// Record is one decoded inbound frame. The set of implementations is closed.
type Record interface {
	// SubTrees returns the Snapshot sections the record carries.
	SubTrees() model.SubTreeSet

	// Kind returns a short name for logs and stats.
	Kind() string

	isRecord()
}

// FullSnapshot carries any subset of sub-trees in one document.
// Nil fields were not present in the frame.
type FullSnapshot struct {
	Telemetry       *model.Telemetry
	Analysis        *model.Analysis
	Strategy        *model.Strategy
	Recommendations []model.Recommendation
	LiveTiming      *model.LiveTiming
	Status          *model.Status
}

// TelemetryPatch is a partial telemetry update.
type TelemetryPatch struct{ Telemetry *model.Telemetry }

// AnalysisPatch is a partial analysis update.
type AnalysisPatch struct{ Analysis *model.Analysis }

// StrategyPatch is a partial strategy update.
type StrategyPatch struct{ Strategy *model.Strategy }

// RecommendationsPatch replaces the recommendation list.
type RecommendationsPatch struct{ Recommendations []model.Recommendation }

// LiveTimingPatch is a partial live-timing update.
type LiveTimingPatch struct{ LiveTiming *model.LiveTiming }

// StatusPatch is a partial producer status update.
type StatusPatch struct{ Status *model.Status }

// ProducerError is an error reported by the producer itself.
type ProducerError struct {
	Message string
	Code    string
}

// CommandAck acknowledges a command without carrying state (pong, setup_loaded).
type CommandAck struct {
	Type    string
	Success *bool
}

// Unrecognized is a well-formed envelope with a type this bridge does not handle.
type Unrecognized struct{ Type string }

func (r *FullSnapshot) SubTrees() model.SubTreeSet {
	var s model.SubTreeSet
	if r.Telemetry != nil {
		s = s.With(model.SubTreeTelemetry)
	}
	if r.Analysis != nil {
		s = s.With(model.SubTreeAnalysis)
	}
	if r.Strategy != nil {
		s = s.With(model.SubTreeStrategy)
	}
	if r.Recommendations != nil {
		s = s.With(model.SubTreeRecommendations)
	}
	if r.LiveTiming != nil {
		s = s.With(model.SubTreeLiveTiming)
	}
	if r.Status != nil {
		s = s.With(model.SubTreeStatus)
	}
	return s
}

func (r *TelemetryPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeTelemetry)
}

func (r *AnalysisPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeAnalysis)
}

func (r *StrategyPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeStrategy)
}

func (r *RecommendationsPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeRecommendations)
}

func (r *LiveTimingPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeLiveTiming)
}

func (r *StatusPatch) SubTrees() model.SubTreeSet {
	return model.NewSubTreeSet(model.SubTreeStatus)
}

func (r *ProducerError) SubTrees() model.SubTreeSet { return 0 }
func (r *CommandAck) SubTrees() model.SubTreeSet    { return 0 }
func (r *Unrecognized) SubTrees() model.SubTreeSet  { return 0 }

func (r *FullSnapshot) Kind() string         { return "snapshot" }
func (r *TelemetryPatch) Kind() string       { return "telemetry" }
func (r *AnalysisPatch) Kind() string        { return "analysis" }
func (r *StrategyPatch) Kind() string        { return "strategy" }
func (r *RecommendationsPatch) Kind() string { return "recommendations" }
func (r *LiveTimingPatch) Kind() string      { return "live_timing" }
func (r *StatusPatch) Kind() string          { return "status" }
func (r *ProducerError) Kind() string        { return "error" }
func (r *CommandAck) Kind() string           { return "ack" }
func (r *Unrecognized) Kind() string         { return "unrecognized" }

func (*FullSnapshot) isRecord()         {}
func (*TelemetryPatch) isRecord()       {}
func (*AnalysisPatch) isRecord()        {}
func (*StrategyPatch) isRecord()        {}
func (*RecommendationsPatch) isRecord() {}
func (*LiveTimingPatch) isRecord()      {}
func (*StatusPatch) isRecord()          {}
func (*ProducerError) isRecord()        {}
func (*CommandAck) isRecord()           {}
func (*Unrecognized) isRecord()         {}

// Error implements error so producer errors can be published as-is.
func (r *ProducerError) Error() string {
	if r.Code != "" {
		return fmt.Sprintf("producer error %s: %s", r.Code, r.Message)
	}
	return "producer error: " + r.Message
}

// DecodeError reports a frame that matched neither a snapshot document nor a known envelope.
type DecodeError struct {
	Frame  []byte
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return "decode frame: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Wire types for JSON parsing

// envelope is the tagged form {type, data}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// errorWire is the message carried by error envelopes, in data or at the top level.
type errorWire struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ackWire struct {
	Success *bool `json:"success"`
}

// telemetryWire accepts the producer's flat broadcast shape on top of the canonical one.
type telemetryWire struct {
	model.Telemetry
	Grip        model.CornerReading `json:"grip"`
	Position    json.RawMessage     `json:"position"` // Number or {place, total_laps, ...}
	Session     *sessionWire        `json:"session"`
	SessionType json.RawMessage     `json:"session_type"`
}

type positionWire struct {
	Place     *int     `json:"place"`
	TotalLaps *int     `json:"total_laps"`
	BestLap   *float64 `json:"best_lap"`
	LastLap   *float64 `json:"last_lap"`
	InPits    *bool    `json:"in_pits"`
	Pitstops  *int     `json:"pitstops"`
}

type sessionWire struct {
	TrackTemp   *float64        `json:"track_temp"`
	AmbientTemp *float64        `json:"ambient_temp"`
	Rain        *float64        `json:"rain"`
	Wetness     *float64        `json:"wetness"`
	SessionType json.RawMessage `json:"session_type"`
}

// strategyWire accepts the fuel calculator's laps_remaining alias.
type strategyWire struct {
	model.Strategy
	LapsRemaining *float64 `json:"laps_remaining"`
}

// recommendationWire covers both the engine's titled form and the analyzer's
// parameter/direction/value form.
type recommendationWire struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    json.RawMessage `json:"priority"`
	Action      string          `json:"action"`
	Value       json.RawMessage `json:"value"`
	Confidence  *float64        `json:"confidence"`
	Category    string          `json:"category"`
	Parameter   string          `json:"parameter"`
	Direction   string          `json:"direction"`
	Reason      string          `json:"reason"`
}

type recommendationsObjectWire struct {
	Recommendations []recommendationWire `json:"recommendations"`
}

// threatWire accepts driver entries keyed either way.
type threatWire struct {
	DriverName  string            `json:"driver_name"`
	Name        string            `json:"name"`
	Position    int               `json:"position"`
	Gap         *float64          `json:"gap"`
	GapToPlayer *float64          `json:"gap_to_player"`
	ThreatLevel model.ThreatLevel `json:"threat_level"`
	PaceDelta   float64           `json:"pace_delta"`
}

type liveTimingWire struct {
	Position    *int         `json:"position"`
	GapAhead    *float64     `json:"gap_ahead"`
	GapBehind   *float64     `json:"gap_behind"`
	GapToLeader *float64     `json:"gap_to_leader"`
	Threats     []threatWire `json:"threats"`
}

// statusWire maps the producer's "connected" flag (simulator link) onto SimConnected.
type statusWire struct {
	Connected    *bool   `json:"connected"`
	SimConnected *bool   `json:"sim_connected"`
	Message      *string `json:"message"`
	Version      *string `json:"version"`
	Clients      *int    `json:"clients"`
}
