package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// DefaultPriority is assigned to recommendations that carry no priority.
const DefaultPriority = 3

var (
	errNotObject      = errors.New("frame is not a JSON object")
	errMissingType    = errors.New("envelope has no type")
	errEmptySnapshot  = errors.New("snapshot document has no known sections")
	errInvalidPayload = errors.New("payload has unexpected JSON shape")
)

var priorityNames = map[string]int{
	"critical": 1,
	"high":     2,
	"medium":   3,
	"low":      4,
	"optional": 5,
}

// Decode classifies one frame. Bare documents keyed by sub-tree name are tried
// first as a full snapshot; everything else goes through the {type, data}
// envelope. A frame that fits neither returns a *DecodeError.
func Decode(frame []byte) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil || fields == nil {
		return nil, &DecodeError{Frame: frame, Reason: "invalid json", Err: errNotObject}
	}

	var snapErr error
	if _, tagged := fields["type"]; !tagged && hasSubTreeKey(fields) {
		rec, err := decodeFull(fields)
		if err == nil {
			return rec, nil
		}
		snapErr = err
	}

	rec, err := decodeEnvelope(frame)
	if err != nil {
		if snapErr != nil {
			return nil, &DecodeError{Frame: frame, Reason: "invalid snapshot document", Err: snapErr}
		}
		return nil, &DecodeError{Frame: frame, Reason: "invalid envelope", Err: err}
	}
	return rec, nil
}

func hasSubTreeKey(fields map[string]json.RawMessage) bool {
	for _, t := range model.AllSubTrees() {
		if _, ok := fields[t.String()]; ok {
			return true
		}
	}
	return false
}

// decodeFull decodes every sub-tree present in the document.
func decodeFull(fields map[string]json.RawMessage) (*FullSnapshot, error) {
	snap := &FullSnapshot{}
	found := false

	for _, t := range model.AllSubTrees() {
		raw, ok := fields[t.String()]
		if !ok || isNull(raw) {
			continue
		}
		found = true

		var err error
		switch t {
		case model.SubTreeTelemetry:
			snap.Telemetry, err = decodeTelemetry(raw)
		case model.SubTreeAnalysis:
			snap.Analysis, err = decodeAnalysis(raw)
		case model.SubTreeStrategy:
			snap.Strategy, err = decodeStrategy(raw)
		case model.SubTreeRecommendations:
			snap.Recommendations, err = decodeRecommendations(raw)
		case model.SubTreeLiveTiming:
			snap.LiveTiming, err = decodeLiveTiming(raw)
		case model.SubTreeStatus:
			snap.Status, err = decodeStatus(raw)
		}
		if err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, errEmptySnapshot
	}
	return snap, nil
}

// decodeEnvelope dispatches on the envelope type. When data is missing the
// frame itself is the payload, matching the producer's flat broadcasts.
func decodeEnvelope(frame []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, errMissingType
	}

	payload := []byte(env.Data)
	if len(payload) == 0 || isNull(payload) {
		payload = frame
	}

	switch msgType := strings.ToLower(env.Type); msgType {
	case "telemetry":
		t, err := decodeTelemetry(payload)
		if err != nil {
			return nil, err
		}
		return &TelemetryPatch{Telemetry: t}, nil

	case "analysis", "summary":
		a, err := decodeAnalysis(payload)
		if err != nil {
			return nil, err
		}
		return &AnalysisPatch{Analysis: a}, nil

	case "strategy":
		s, err := decodeStrategy(payload)
		if err != nil {
			return nil, err
		}
		return &StrategyPatch{Strategy: s}, nil

	case "recommendations":
		recs, err := decodeRecommendations(payload)
		if err != nil {
			return nil, err
		}
		return &RecommendationsPatch{Recommendations: recs}, nil

	case "live_timing":
		l, err := decodeLiveTiming(payload)
		if err != nil {
			return nil, err
		}
		return &LiveTimingPatch{LiveTiming: l}, nil

	case "status":
		s, err := decodeStatus(payload)
		if err != nil {
			return nil, err
		}
		return &StatusPatch{Status: s}, nil

	case "rf2_connected":
		s, err := decodeStatus(payload)
		if err != nil {
			return nil, err
		}
		return &StatusPatch{Status: &model.Status{SimConnected: s.SimConnected}}, nil

	case "snapshot":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, err
		}
		return decodeFull(fields)

	case "error":
		return decodeProducerError(frame, env.Data), nil

	case "pong", "setup_loaded", "subscribed":
		var ack ackWire
		_ = json.Unmarshal(payload, &ack)
		return &CommandAck{Type: msgType, Success: ack.Success}, nil

	default:
		return &Unrecognized{Type: env.Type}, nil
	}
}

func decodeTelemetry(raw []byte) (*model.Telemetry, error) {
	var w telemetryWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	t := w.Telemetry
	t.TireGrip.Merge(w.Grip)
	if s := rawText(w.SessionType); s != nil {
		t.SessionType = s
	}

	if len(w.Position) > 0 && !isNull(w.Position) {
		switch bytes.TrimSpace(w.Position)[0] {
		case '{':
			var p positionWire
			if err := json.Unmarshal(w.Position, &p); err != nil {
				return nil, err
			}
			t.Merge(&model.Telemetry{
				Position:  p.Place,
				TotalLaps: p.TotalLaps,
				BestLap:   p.BestLap,
				LastLap:   p.LastLap,
				InPits:    p.InPits,
				Pitstops:  p.Pitstops,
			})
		default:
			var place int
			if err := json.Unmarshal(w.Position, &place); err != nil {
				return nil, err
			}
			t.Position = model.Int(place)
		}
	}

	if w.Session != nil {
		t.Merge(&model.Telemetry{
			TrackTemp:   w.Session.TrackTemp,
			AmbientTemp: w.Session.AmbientTemp,
			Rain:        w.Session.Rain,
			Wetness:     w.Session.Wetness,
			SessionType: rawText(w.Session.SessionType),
		})
	}

	return &t, nil
}

func decodeAnalysis(raw []byte) (*model.Analysis, error) {
	var a model.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeStrategy(raw []byte) (*model.Strategy, error) {
	var w strategyWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	s := w.Strategy
	if s.FuelLapsRemaining == nil && w.LapsRemaining != nil {
		s.FuelLapsRemaining = model.Float(*w.LapsRemaining)
	}
	return &s, nil
}

// decodeRecommendations accepts a bare array or an object holding one.
// The result is never nil so an empty list still marks the sub-tree present.
func decodeRecommendations(raw []byte) ([]model.Recommendation, error) {
	var wires []recommendationWire
	switch firstByte(raw) {
	case '[':
		if err := json.Unmarshal(raw, &wires); err != nil {
			return nil, err
		}
	case '{':
		var obj recommendationsObjectWire
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		wires = obj.Recommendations
	default:
		return nil, errInvalidPayload
	}

	recs := make([]model.Recommendation, 0, len(wires))
	for _, w := range wires {
		recs = append(recs, w.toModel())
	}
	return recs, nil
}

func (w recommendationWire) toModel() model.Recommendation {
	r := model.Recommendation{
		Title:      w.Title,
		Priority:   parsePriority(w.Priority),
		Action:     w.Action,
		Confidence: normalizeConfidence(w.Confidence),
		Category:   w.Category,
		Parameter:  w.Parameter,
		Direction:  w.Direction,
		Reason:     w.Reason,
	}
	if r.Title == "" && w.Parameter != "" {
		// Casers are stateful; one per call.
		direction := cases.Title(language.English).String(w.Direction)
		r.Title = strings.TrimSpace(direction + " " + strings.ReplaceAll(w.Parameter, "_", " "))
	}
	if r.Action == "" {
		if v := rawText(w.Value); v != nil {
			r.Action = *v
		}
	}
	if r.Reason == "" {
		r.Reason = w.Description
	}
	return r
}

// parsePriority accepts a number or a level name.
func parsePriority(raw json.RawMessage) int {
	if len(raw) == 0 || isNull(raw) {
		return DefaultPriority
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if p, ok := priorityNames[strings.ToLower(s)]; ok {
			return p
		}
		if p, err := strconv.Atoi(s); err == nil {
			return p
		}
	}
	return DefaultPriority
}

// normalizeConfidence maps percentages onto 0-1 and clamps.
func normalizeConfidence(c *float64) float64 {
	if c == nil {
		return 0
	}
	v := *c
	if v > 1 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func decodeLiveTiming(raw []byte) (*model.LiveTiming, error) {
	var w liveTimingWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	l := &model.LiveTiming{
		Position:    w.Position,
		GapAhead:    w.GapAhead,
		GapBehind:   w.GapBehind,
		GapToLeader: w.GapToLeader,
	}
	if w.Threats != nil {
		l.Threats = make([]model.Threat, 0, len(w.Threats))
		for _, tw := range w.Threats {
			th := model.Threat{
				DriverName:  tw.DriverName,
				Position:    tw.Position,
				ThreatLevel: tw.ThreatLevel,
				PaceDelta:   tw.PaceDelta,
			}
			if th.DriverName == "" {
				th.DriverName = tw.Name
			}
			switch {
			case tw.Gap != nil:
				th.Gap = *tw.Gap
			case tw.GapToPlayer != nil:
				th.Gap = *tw.GapToPlayer
			}
			if th.ThreatLevel == "" {
				th.ThreatLevel = model.ThreatNone
			}
			l.Threats = append(l.Threats, th)
		}
	}
	return l, nil
}

func decodeStatus(raw []byte) (*model.Status, error) {
	var w statusWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	s := &model.Status{
		SimConnected: w.SimConnected,
		Message:      w.Message,
		Version:      w.Version,
		Clients:      w.Clients,
	}
	if s.SimConnected == nil {
		s.SimConnected = w.Connected
	}
	return s, nil
}

// decodeProducerError reads the message from data.message, a string data
// payload, or the top-level message.
func decodeProducerError(frame []byte, rawData json.RawMessage) *ProducerError {
	var top errorWire
	_ = json.Unmarshal(frame, &top)
	pe := &ProducerError{Message: top.Message, Code: top.Code}
	if len(rawData) == 0 || isNull(rawData) {
		return pe
	}

	var data errorWire
	if err := json.Unmarshal(rawData, &data); err == nil {
		if data.Message != "" {
			pe.Message = data.Message
		}
		if data.Code != "" {
			pe.Code = data.Code
		}
		return pe
	}

	var s string
	if err := json.Unmarshal(rawData, &s); err == nil && s != "" {
		pe.Message = s
	}
	return pe
}

// rawText returns a JSON string or number as text, nil otherwise.
func rawText(raw json.RawMessage) *string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.String(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return model.String(n.String())
	}
	return nil
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstByte(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
