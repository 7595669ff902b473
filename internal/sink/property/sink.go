package property

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agpsuite/telemetry-bridge/internal/fanout"
	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// DefaultPrefix is the root of every property name.
const DefaultPrefix = "AGP"

// getter resolves a property. ok is false when the backing field is absent.
type getter func(s *model.Snapshot, d metrics.Values) (v any, ok bool)

type binding struct {
	name string
	kind Kind
	def  any
	get  getter
}

// Sink mirrors snapshots into a Bag. It implements fanout.Handler.
type Sink struct {
	bag      Bag
	logger   *slog.Logger
	bindings []binding

	mu   sync.Mutex
	last map[string]any
}

// NewSink registers every known property on bag.
func NewSink(bag Bag, prefix string, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	s := &Sink{
		bag:      bag,
		logger:   logger.With("component", "property_sink"),
		bindings: buildBindings(newNamer(prefix)),
		last:     make(map[string]any),
	}

	for _, b := range s.bindings {
		if err := bag.Register(b.name, b.kind, b.def); err != nil {
			return nil, fmt.Errorf("register %s: %w", b.name, err)
		}
		s.last[b.name] = b.def
	}

	s.logger.Debug("properties registered", "count", len(s.bindings), "prefix", prefix)
	return s, nil
}

// Handle applies snapshot events.
func (s *Sink) Handle(e fanout.Event) {
	if e.Kind != fanout.KindSnapshot || e.Snapshot == nil {
		return
	}
	s.Apply(e.Snapshot, e.Derived)
}

// Apply sets every property whose resolved value changed and returns how many were set.
func (s *Sink) Apply(snap *model.Snapshot, derived metrics.Values) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range s.bindings {
		v, ok := b.get(snap, derived)
		if !ok {
			v = b.def
		}
		if s.last[b.name] == v {
			continue
		}
		if err := s.bag.Set(b.name, v); err != nil {
			s.logger.Warn("failed to set property", "name", b.name, "error", err)
			continue
		}
		s.last[b.name] = v
		n++
	}
	return n
}

// Names returns the registered property names in registration order.
func (s *Sink) Names() []string {
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.name
	}
	return names
}

// ---- Naming ----

type namer struct {
	prefix string
	caser  cases.Caser
}

func newNamer(prefix string) namer {
	return namer{prefix: prefix, caser: cases.Title(language.English)}
}

// name joins prefix, section and words, e.g. ("live timing", "gap ahead") -> AGP.LiveTiming.GapAhead.
func (n namer) name(section, words string) string {
	return n.prefix + "." + n.pascal(section) + "." + n.pascal(words)
}

func (n namer) pascal(words string) string {
	return strings.ReplaceAll(n.caser.String(words), " ", "")
}

// ---- Bindings ----

func opt[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

// field resolves f on the sub-record picked by rec.
func field[R, T any](rec func(*model.Snapshot) *R, f func(*R) *T) getter {
	return func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		r := rec(s)
		if r == nil {
			return nil, false
		}
		return opt(f(r))
	}
}

func telemetry(s *model.Snapshot) *model.Telemetry   { return s.Telemetry }
func analysis(s *model.Snapshot) *model.Analysis     { return s.Analysis }
func strategy(s *model.Snapshot) *model.Strategy     { return s.Strategy }
func liveTiming(s *model.Snapshot) *model.LiveTiming { return s.LiveTiming }
func status(s *model.Snapshot) *model.Status         { return s.Status }

func corner(reading func(*model.Telemetry) model.CornerReading, c model.Corner) getter {
	return func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		if s.Telemetry == nil {
			return nil, false
		}
		return opt(reading(s.Telemetry).Get(c))
	}
}

func buildBindings(n namer) []binding {
	var out []binding
	add := func(section, words string, kind Kind, def any, get getter) {
		out = append(out, binding{name: n.name(section, words), kind: kind, def: def, get: get})
	}
	double := func(section, words string, get getter) { add(section, words, KindDouble, 0.0, get) }
	integer := func(section, words string, get getter) { add(section, words, KindInt, 0, get) }
	boolean := func(section, words string, get getter) { add(section, words, KindBool, false, get) }
	text := func(section, words string, get getter) { add(section, words, KindString, "", get) }

	// Connection
	boolean("connection", "connected", func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		return s.Connected, true
	})
	boolean("connection", "sim connected", func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		return s.SimConnected(), true
	})
	text("connection", "producer version", field(status, func(r *model.Status) *string { return r.Version }))

	// Telemetry
	text("telemetry", "vehicle", field(telemetry, func(t *model.Telemetry) *string { return t.Vehicle }))
	text("telemetry", "track", field(telemetry, func(t *model.Telemetry) *string { return t.Track }))
	double("telemetry", "speed", field(telemetry, func(t *model.Telemetry) *float64 { return t.Speed }))
	double("telemetry", "rpm", field(telemetry, func(t *model.Telemetry) *float64 { return t.RPM }))
	double("telemetry", "rpm max", field(telemetry, func(t *model.Telemetry) *float64 { return t.RPMMax }))
	integer("telemetry", "gear", field(telemetry, func(t *model.Telemetry) *int { return t.Gear }))
	double("telemetry", "fuel", field(telemetry, func(t *model.Telemetry) *float64 { return t.Fuel }))
	double("telemetry", "fuel pct", field(telemetry, func(t *model.Telemetry) *float64 { return t.FuelPct }))
	double("telemetry", "fuel per lap", field(telemetry, func(t *model.Telemetry) *float64 { return t.FuelPerLap }))
	double("telemetry", "throttle", field(telemetry, func(t *model.Telemetry) *float64 { return t.Throttle }))
	double("telemetry", "brake", field(telemetry, func(t *model.Telemetry) *float64 { return t.Brake }))
	double("telemetry", "water temp", field(telemetry, func(t *model.Telemetry) *float64 { return t.WaterTemp }))
	double("telemetry", "oil temp", field(telemetry, func(t *model.Telemetry) *float64 { return t.OilTemp }))
	integer("telemetry", "lap number", field(telemetry, func(t *model.Telemetry) *int { return t.LapNumber }))
	integer("telemetry", "position", field(telemetry, func(t *model.Telemetry) *int { return t.Position }))
	double("telemetry", "best lap", field(telemetry, func(t *model.Telemetry) *float64 { return t.BestLap }))
	double("telemetry", "last lap", field(telemetry, func(t *model.Telemetry) *float64 { return t.LastLap }))
	boolean("telemetry", "in pits", field(telemetry, func(t *model.Telemetry) *bool { return t.InPits }))
	double("telemetry", "track temp", field(telemetry, func(t *model.Telemetry) *float64 { return t.TrackTemp }))
	double("telemetry", "ambient temp", field(telemetry, func(t *model.Telemetry) *float64 { return t.AmbientTemp }))

	readings := []struct {
		words string
		def   float64
		get   func(*model.Telemetry) model.CornerReading
	}{
		{"tire temp", model.DefaultTireTemp, func(t *model.Telemetry) model.CornerReading { return t.TireTemp }},
		{"tire pressure", model.DefaultTirePressure, func(t *model.Telemetry) model.CornerReading { return t.TirePressure }},
		{"tire wear", model.DefaultTireWear, func(t *model.Telemetry) model.CornerReading { return t.TireWear }},
		{"tire grip", model.DefaultTireGrip, func(t *model.Telemetry) model.CornerReading { return t.TireGrip }},
		{"brake temp", model.DefaultBrakeTemp, func(t *model.Telemetry) model.CornerReading { return t.BrakeTemp }},
	}
	for _, r := range readings {
		for _, c := range model.Corners {
			out = append(out, binding{
				name: n.name("telemetry", r.words) + c.String(),
				kind: KindDouble,
				def:  r.def,
				get:  corner(r.get, c),
			})
		}
	}

	// Analysis
	text("analysis", "status", field(analysis, func(a *model.Analysis) *string { return a.Status }))
	double("analysis", "understeer pct", field(analysis, func(a *model.Analysis) *float64 { return a.UndersteerPct }))
	double("analysis", "oversteer pct", field(analysis, func(a *model.Analysis) *float64 { return a.OversteerPct }))
	double("analysis", "traction loss pct", field(analysis, func(a *model.Analysis) *float64 { return a.TractionLossPct }))
	text("analysis", "corner phase", field(analysis, func(a *model.Analysis) *string { return a.CornerPhase }))

	// Strategy
	double("strategy", "fuel laps remaining", field(strategy, func(st *model.Strategy) *float64 { return st.FuelLapsRemaining }))
	double("strategy", "tire laps remaining", field(strategy, func(st *model.Strategy) *float64 { return st.TireLapsRemaining }))
	integer("strategy", "pit window start", field(strategy, func(st *model.Strategy) *int { return st.PitWindowStart }))
	integer("strategy", "pit window end", field(strategy, func(st *model.Strategy) *int { return st.PitWindowEnd }))
	boolean("strategy", "is critical", field(strategy, func(st *model.Strategy) *bool { return st.IsCritical }))

	// Live timing
	integer("live timing", "position", field(liveTiming, func(l *model.LiveTiming) *int { return l.Position }))
	double("live timing", "gap ahead", field(liveTiming, func(l *model.LiveTiming) *float64 { return l.GapAhead }))
	double("live timing", "gap behind", field(liveTiming, func(l *model.LiveTiming) *float64 { return l.GapBehind }))
	double("live timing", "gap to leader", field(liveTiming, func(l *model.LiveTiming) *float64 { return l.GapToLeader }))
	integer("live timing", "threat count", func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		if s.LiveTiming == nil {
			return nil, false
		}
		return len(s.LiveTiming.Threats), true
	})
	text("live timing", "threat driver", func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		if s.LiveTiming == nil || len(s.LiveTiming.Threats) == 0 {
			return nil, false
		}
		return s.LiveTiming.Threats[0].DriverName, true
	})
	add("live timing", "threat level", KindString, string(model.ThreatNone), func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		if s.LiveTiming == nil || len(s.LiveTiming.Threats) == 0 {
			return nil, false
		}
		return string(s.LiveTiming.Threats[0].ThreatLevel), true
	})

	// Recommendations
	integer("recommendations", "count", func(s *model.Snapshot, _ metrics.Values) (any, bool) {
		return len(s.Recommendations), true
	})
	next := func(f func(model.Recommendation) any) getter {
		return func(s *model.Snapshot, _ metrics.Values) (any, bool) {
			r, ok := s.NextRecommendation()
			if !ok {
				return nil, false
			}
			return f(r), true
		}
	}
	text("recommendations", "next title", next(func(r model.Recommendation) any { return r.Title }))
	text("recommendations", "next action", next(func(r model.Recommendation) any { return r.Action }))
	integer("recommendations", "next priority", next(func(r model.Recommendation) any { return r.Priority }))
	double("recommendations", "next confidence", next(func(r model.Recommendation) any { return r.Confidence }))

	// Derived
	double("derived", "balance", func(_ *model.Snapshot, d metrics.Values) (any, bool) { return opt(d.Balance) })
	add("derived", "tire condition", KindDouble, 100.0, func(_ *model.Snapshot, d metrics.Values) (any, bool) {
		return d.TireCondition, true
	})
	double("derived", "fuel urgency", func(_ *model.Snapshot, d metrics.Values) (any, bool) { return opt(d.FuelUrgency) })

	return out
}
