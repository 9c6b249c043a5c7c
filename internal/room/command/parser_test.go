package command

import (
	"errors"
	"testing"
)

func TestParseDriveCommands(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		typ   ActionType
		value int
	}{
		{"left lower bound", "/left 0", ActionTurnLeft, 0},
		{"left mid", "/left 50", ActionTurnLeft, 50},
		{"left upper bound", "/left 100", ActionTurnLeft, 100},
		{"right", "/right 30", ActionTurnRight, 30},
		{"right mixed case", "/RiGhT 30", ActionTurnRight, 30},
		{"forwards", "/forwards 2", ActionForward, 2},
		{"forwards zero", "/forwards 0", ActionForward, 0},
		{"forwards upper bound", "/forwards 10", ActionForward, 10},
		{"backwards", "/backwards 3", ActionBackward, 3},
		{"backwards upper case", "/BACKWARDS 3", ActionBackward, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if got.Type != tt.typ || got.Value != tt.value {
				t.Errorf("Parse(%q) = %+v, want type %s value %d", tt.raw, got, tt.typ, tt.value)
			}
			if !got.IsDrive() {
				t.Errorf("Parse(%q).IsDrive() = false", tt.raw)
			}
		})
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"left above bound", "/left 101", ErrSteerOutOfRange},
		{"left negative", "/left -1", ErrSteerOutOfRange},
		{"right above bound", "/right 150", ErrSteerOutOfRange},
		{"forwards above bound", "/forwards 11", ErrDriveOutOfRange},
		{"backwards negative", "/backwards -2", ErrDriveOutOfRange},
		{"left non-integer", "/left fast", ErrIntegerRequired},
		{"forwards non-integer", "/forwards 2.5", ErrIntegerRequired},
		{"right empty arg", "/right ", ErrIntegerRequired},
		{"bare drive keyword", "/left", ErrUnrecognised},
		{"unknown command", "/dance", ErrUnrecognised},
		{"go without direction", "/go", ErrBadDirection},
		{"go bad direction", "/go sideways", ErrBadDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.raw, err, tt.want)
			}
		})
	}
}

func TestParseLookAndGo(t *testing.T) {
	a, err := Parse("/look")
	if err != nil {
		t.Fatalf("Parse(/look): %v", err)
	}
	if a.Type != ActionLook || a.IsDrive() {
		t.Errorf("Parse(/look) = %+v", a)
	}

	for _, dir := range []string{"n", "s", "e", "w", "u", "d"} {
		a, err := Parse("/go " + dir)
		if err != nil {
			t.Fatalf("Parse(/go %s): %v", dir, err)
		}
		if a.Type != ActionGo || a.Exit != dir {
			t.Errorf("Parse(/go %s) = %+v", dir, a)
		}
	}
}
