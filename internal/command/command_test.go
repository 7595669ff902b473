package command

import (
	"errors"
	"testing"
)

type fakeSender struct {
	connected bool
	frames    []string
}

func (f *fakeSender) Send(data []byte) bool {
	if !f.connected {
		return false
	}
	f.frames = append(f.frames, string(data))
	return true
}

func TestHandshake(t *testing.T) {
	data, err := Handshake()
	if err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	want := `{"type":"subscribe","channels":["telemetry","analysis","strategy","recommendations","live_timing"]}`
	if string(data) != want {
		t.Errorf("Handshake() = %s, want %s", data, want)
	}
}

func TestSubscribe_DoesNotAliasDefaults(t *testing.T) {
	cmd := Subscribe()
	cmd.Channels[0] = "weather"

	if DefaultChannels[0] != "telemetry" {
		t.Errorf("DefaultChannels mutated: %v", DefaultChannels)
	}
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"get_status", GetStatus(), `{"type":"get_status"}`},
		{"get_recommendations", GetRecommendations(), `{"type":"get_recommendations"}`},
		{"get_summary", GetSummary(), `{"type":"get_summary"}`},
		{"ping", Ping(), `{"type":"ping"}`},
		{"load_setup", LoadSetup("setups/monza.svm"), `{"type":"load_setup","path":"setups/monza.svm"}`},
		{"subscribe subset", Subscribe("telemetry"), `{"type":"subscribe","channels":["telemetry"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.cmd.Marshal()
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"unknown type", Command{Type: "reboot"}},
		{"empty type", Command{}},
		{"load_setup without path", LoadSetup("")},
		{"subscribe without channels", Command{Type: TypeSubscribe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Validate(); !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("Validate() = %v, want ErrInvalidCommand", err)
			}
		})
	}
}

func TestChannel_Send(t *testing.T) {
	sender := &fakeSender{}
	ch := NewChannel(sender, nil)

	ok, err := ch.Send(GetStatus())
	if err != nil || ok {
		t.Errorf("Send while disconnected = (%v, %v), want (false, nil)", ok, err)
	}

	sender.connected = true
	ok, err = ch.Send(Ping())
	if err != nil || !ok {
		t.Errorf("Send while connected = (%v, %v), want (true, nil)", ok, err)
	}

	if _, err := ch.Send(Command{Type: "bogus"}); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("Send invalid = %v, want ErrInvalidCommand", err)
	}

	if len(sender.frames) != 1 || sender.frames[0] != `{"type":"ping"}` {
		t.Errorf("frames = %v", sender.frames)
	}

	stats := ch.Stats()
	if stats.Sent != 1 || stats.Dropped != 1 || stats.Rejected != 1 {
		t.Errorf("Stats() = %+v, want 1 sent, 1 dropped, 1 rejected", stats)
	}
}
