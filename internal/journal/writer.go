package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agpsuite/telemetry-bridge/internal/fanout"
)

// DB is the subset of *pgxpool.Pool used by the Writer.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures the Writer.
type Config struct {
	BatchSize     int           // Flush when this many entries are pending
	FlushInterval time.Duration // Flush at least this often
	BufferSize    int           // Initial queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    256,
	}
}

// Metrics tracks writer activity.
type Metrics struct {
	Received int64 `json:"received"`
	Ignored  int64 `json:"ignored"` // Snapshot events
	Dropped  int64 `json:"dropped"` // Arrived after Stop
	Inserts  int64 `json:"inserts"`
	Errors   int64 `json:"errors"`
	Flushes  int64 `json:"flushes"`
}

// Entry is one journal row.
type Entry struct {
	Kind      string
	Seq       uint64
	Session   uuid.UUID
	Connected bool
	Explicit  bool
	Message   string
	At        time.Time
}

const insertEntry = `
	INSERT INTO bridge_journal (kind, seq, session_id, connected, explicit, message, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Writer consumes publisher events and writes them to bridge_journal.
type Writer struct {
	cfg    Config
	logger *slog.Logger
	db     DB

	input *fanout.Queue[Entry]

	// Batching
	batch   []Entry
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "journal"),
		input:  fanout.NewQueue[Entry](cfg.BufferSize),
		batch:  make([]Entry, 0, cfg.BatchSize),
	}
}

// Handle implements fanout.Handler. It never blocks on the database.
func (w *Writer) Handle(e fanout.Event) {
	entry, ok := toEntry(e)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if !ok {
		w.metrics.Ignored++
		return
	}
	w.metrics.Received++
	if !w.input.Push(entry) {
		w.metrics.Dropped++
	}
}

// toEntry converts connectivity and error events. Other kinds are skipped.
func toEntry(e fanout.Event) (Entry, bool) {
	entry := Entry{
		Kind: e.Kind.String(),
		Seq:  e.Seq,
		At:   e.At,
	}
	switch e.Kind {
	case fanout.KindConnectivity:
		entry.Session = e.Session
		entry.Connected = e.Connected
		entry.Explicit = e.Explicit
		if e.Connected {
			entry.Message = "connected"
		} else {
			entry.Message = "disconnected"
		}
	case fanout.KindError:
		if e.Err != nil {
			entry.Message = e.Err.Error()
		}
	default:
		return Entry{}, false
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	return entry, true
}

// Start begins consuming entries and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer and flushes what is pending using ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
		return ctx.Err()
	}

	// Entries still queued when the loops exited.
	for _, e := range w.input.PopBatch(0) {
		w.add(e)
	}
	w.flush(ctx)

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop moves entries from the queue into the pending batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			entry, ok := w.input.TryPop()
			if !ok {
				// Queue empty, wait a bit before trying again
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			if w.add(entry) {
				w.flush(w.ctx)
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends an entry and reports whether the batch is full.
func (w *Writer) add(e Entry) bool {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, e)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Entry, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using a single pgx.Batch.
func (w *Writer) batchInsert(ctx context.Context, rows []Entry) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertEntry,
			r.Kind, int64(r.Seq), nullableSession(r.Session), r.Connected, r.Explicit, r.Message, r.At)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullableSession(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
