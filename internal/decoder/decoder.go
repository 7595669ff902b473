package decoder

import (
	"log/slog"
	"sync"
)

// maxLoggedFrame bounds how much of a bad frame is logged.
const maxLoggedFrame = 256

// Stats contains decoder counters.
type Stats struct {
	FramesReceived int64
	Decoded        int64
	Snapshots      int64
	DecodeErrors   int64
	Unrecognized   int64
	ProducerErrors int64
}

// Decoder wraps Decode with counters and logging.
type Decoder struct {
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Decoder.
func New(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Decode classifies one frame and records the outcome.
func (d *Decoder) Decode(frame []byte) (Record, error) {
	rec, err := Decode(frame)

	d.mu.Lock()
	d.stats.FramesReceived++
	if err != nil {
		d.stats.DecodeErrors++
	} else {
		d.stats.Decoded++
		switch rec.(type) {
		case *FullSnapshot:
			d.stats.Snapshots++
		case *Unrecognized:
			d.stats.Unrecognized++
		case *ProducerError:
			d.stats.ProducerErrors++
		}
	}
	d.mu.Unlock()

	switch r := rec.(type) {
	case nil:
		d.logger.Warn("dropping undecodable frame",
			"error", err,
			"frame", truncate(frame, maxLoggedFrame),
		)
	case *Unrecognized:
		d.logger.Debug("skipping message type", "type", r.Type)
	}

	return rec, err
}

// Stats returns current counters.
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
