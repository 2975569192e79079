package realtime

import (
	"testing"
	"time"

	"github.com/desertthunder/genie/internal/shared"
)

func TestBackoffPolicy(t *testing.T) {
	p := DefaultBackoff()

	t.Run("Delay", func(t *testing.T) {
		tc := []struct {
			attempt int
			want    time.Duration
		}{
			{0, 3 * time.Second},
			{1, 3 * time.Second},
			{2, 4500 * time.Millisecond},
			{3, 6750 * time.Millisecond},
			{4, 10125 * time.Millisecond},
			{5, 15187500 * time.Microsecond},
			{6, 22781250 * time.Microsecond},
			{7, 30 * time.Second},
			{20, 30 * time.Second},
		}

		for _, tt := range tc {
			if got := p.Delay(tt.attempt); got != tt.want {
				t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
			}
		}
	})

	t.Run("monotonic with ceiling", func(t *testing.T) {
		prev := time.Duration(0)
		for n := 1; n <= 50; n++ {
			d := p.Delay(n)
			if d < prev {
				t.Fatalf("attempt %d: delay %v decreased from %v", n, d, prev)
			}
			if d > p.Cap {
				t.Fatalf("attempt %d: delay %v exceeds cap %v", n, d, p.Cap)
			}
			prev = d
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		if p.Exhausted(4) {
			t.Error("expected budget to remain after 4 attempts")
		}
		if !p.Exhausted(5) {
			t.Error("expected budget to be exhausted after 5 attempts")
		}
	})

	t.Run("BackoffFromConfig", func(t *testing.T) {
		got := BackoffFromConfig(shared.DefaultConfig().Realtime)
		if got != p {
			t.Errorf("expected default config to match DefaultBackoff, got %+v", got)
		}
	})
}

func TestDesiredState(t *testing.T) {
	tc := []struct {
		name     string
		in       Inputs
		desired  bool
		teardown bool
	}{
		{"all set", Inputs{Authenticated: true, ViewActive: true, Online: true, Focused: true}, true, false},
		{"unfocused still desired", Inputs{Authenticated: true, ViewActive: true, Online: true}, true, false},
		{"offline", Inputs{Authenticated: true, ViewActive: true}, false, false},
		{"signed out", Inputs{ViewActive: true, Online: true}, false, true},
		{"view inactive", Inputs{Authenticated: true, Online: true}, false, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := DesiredState(tt.in); got != tt.desired {
				t.Errorf("expected desired %v, got %v", tt.desired, got)
			}
			if got := NeedsTeardown(tt.in); got != tt.teardown {
				t.Errorf("expected teardown %v, got %v", tt.teardown, got)
			}
		})
	}
}

func TestStateLabels(t *testing.T) {
	tc := map[State][2]string{
		Disconnected: {"disconnected", "Disconnected"},
		Connecting:   {"connecting", "Connecting..."},
		Connected:    {"connected", "Connected"},
	}
	for s, want := range tc {
		if s.String() != want[0] || s.Label() != want[1] {
			t.Errorf("expected %v, got %q/%q", want, s.String(), s.Label())
		}
	}
}
