package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agpsuite/telemetry-bridge/internal/command"
)

// CommandSender delivers commands to the producer.
type CommandSender interface {
	SendCommand(cmd command.Command) (bool, error)
}

// CommandSenderFunc is a function adapter for CommandSender.
type CommandSenderFunc func(command.Command) (bool, error)

func (f CommandSenderFunc) SendCommand(cmd command.Command) (bool, error) {
	return f(cmd)
}

// Config holds poller configuration.
type Config struct {
	StatusInterval          time.Duration // get_status period (0 disables)
	RecommendationsInterval time.Duration // get_recommendations period (0 disables)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StatusInterval: 5 * time.Second,
	}
}

// Stats counts poll outcomes across all jobs.
type Stats struct {
	Sent    int64 `json:"sent"`
	Skipped int64 `json:"skipped"` // Not connected
	Errors  int64 `json:"errors"`
}

type job struct {
	name     string
	interval time.Duration
	build    func() command.Command
}

// Poller periodically requests producer state through the command channel.
type Poller struct {
	cfg    Config
	sender CommandSender
	logger *slog.Logger
	jobs   []job

	mu    sync.Mutex
	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, sender CommandSender, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		cfg:    cfg,
		sender: sender,
		logger: logger.With("component", "poller"),
	}
	if cfg.StatusInterval > 0 {
		p.jobs = append(p.jobs, job{name: command.TypeGetStatus, interval: cfg.StatusInterval, build: command.GetStatus})
	}
	if cfg.RecommendationsInterval > 0 {
		p.jobs = append(p.jobs, job{name: command.TypeGetRecommendations, interval: cfg.RecommendationsInterval, build: command.GetRecommendations})
	}
	return p
}

// Start begins one polling loop per configured job.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, j := range p.jobs {
		p.wg.Add(1)
		go p.run(j)
	}

	p.logger.Info("command poller started",
		"status_interval", p.cfg.StatusInterval,
		"recommendations_interval", p.cfg.RecommendationsInterval,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("command poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// run is the polling loop of one job.
func (p *Poller) run(j job) {
	defer p.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll(j)
		}
	}
}

// poll sends one command and records the outcome.
func (p *Poller) poll(j job) {
	sent, err := p.sender.SendCommand(j.build())

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case err != nil:
		p.stats.Errors++
		p.logger.Warn("failed to poll producer", "command", j.name, "err", err)
	case !sent:
		p.stats.Skipped++
	default:
		p.stats.Sent++
	}
}
