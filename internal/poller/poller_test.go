package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agpsuite/telemetry-bridge/internal/command"
)

// recordingSender records commands and answers with a fixed result.
type recordingSender struct {
	mu    sync.Mutex
	types []string
	sent  bool
	err   error
}

func (r *recordingSender) SendCommand(cmd command.Command) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, cmd.Type)
	return r.sent, r.err
}

func (r *recordingSender) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == typ {
			n++
		}
	}
	return n
}

func TestPoller_Poll(t *testing.T) {
	tests := []struct {
		name   string
		sender *recordingSender
		want   Stats
	}{
		{"sent", &recordingSender{sent: true}, Stats{Sent: 1}},
		{"disconnected", &recordingSender{sent: false}, Stats{Skipped: 1}},
		{"error", &recordingSender{err: errors.New("invalid command")}, Stats{Errors: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(DefaultConfig(), tt.sender, nil)
			p.poll(p.jobs[0])

			if got := p.Stats(); got != tt.want {
				t.Errorf("Stats() = %+v, want %+v", got, tt.want)
			}
			if got := tt.sender.count(command.TypeGetStatus); got != 1 {
				t.Errorf("get_status sent %d times, want 1", got)
			}
		})
	}
}

func TestPoller_Jobs(t *testing.T) {
	p := New(Config{}, &recordingSender{}, nil)
	if len(p.jobs) != 0 {
		t.Errorf("jobs = %d, want 0 with both intervals disabled", len(p.jobs))
	}

	p = New(Config{StatusInterval: time.Second, RecommendationsInterval: time.Second}, &recordingSender{}, nil)
	if len(p.jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(p.jobs))
	}
	if p.jobs[1].name != command.TypeGetRecommendations {
		t.Errorf("second job = %q, want %q", p.jobs[1].name, command.TypeGetRecommendations)
	}
}

func TestPoller_StartStop(t *testing.T) {
	sender := &recordingSender{sent: true}
	cfg := Config{
		StatusInterval:          10 * time.Millisecond,
		RecommendationsInterval: 15 * time.Millisecond,
	}
	p := New(cfg, sender, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for (sender.count(command.TypeGetStatus) < 2 || sender.count(command.TypeGetRecommendations) < 1) &&
		time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := sender.count(command.TypeGetStatus); got < 2 {
		t.Errorf("get_status sent %d times, want >= 2", got)
	}
	if got := sender.count(command.TypeGetRecommendations); got < 1 {
		t.Errorf("get_recommendations sent %d times, want >= 1", got)
	}
}

func TestPoller_SenderFunc(t *testing.T) {
	var got command.Command
	p := New(DefaultConfig(), CommandSenderFunc(func(cmd command.Command) (bool, error) {
		got = cmd
		return true, nil
	}), nil)

	p.poll(p.jobs[0])
	if got.Type != command.TypeGetStatus {
		t.Errorf("command = %q, want %q", got.Type, command.TypeGetStatus)
	}
}
