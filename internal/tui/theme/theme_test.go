package theme

import "testing"

func TestStateColor(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"idle", string(ColorIdle)},
		{"creating", string(ColorPending)},
		{"searching", string(ColorPending)},
		{"joining", string(ColorPending)},
		{"hosting", string(ColorHosting)},
		{"connected", string(ColorConnected)},
		{"bogus", string(ColorIdle)},
	}
	for _, tt := range tests {
		if got := string(StateColor(tt.state)); got != tt.want {
			t.Errorf("StateColor(%q) = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestMessageColorUnknown(t *testing.T) {
	if got := MessageColor("magenta"); got != ColorDefault {
		t.Errorf("MessageColor(magenta) = %s, want default", got)
	}
}
