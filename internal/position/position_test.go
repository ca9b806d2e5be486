package position

import (
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name: "Valid position with filename",
			pos: Position{
				Filename: "dir/nmsq.qy",
				Line:     10,
				Column:   5,
				Offset:   100,
			},
			isValid:  true,
			expected: "nmsq.qy:10:5",
		},
		{
			name: "Valid position without filename",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: 0,
			},
			isValid:  true,
			expected: "1:1",
		},
		{
			name:    "Invalid position - zero line",
			pos:     Position{Line: 0, Column: 1},
			isValid: false,
		},
		{
			name:    "Invalid position - zero column",
			pos:     Position{Line: 1, Column: 0},
			isValid: false,
		},
		{
			name:    "Invalid position - negative offset",
			pos:     Position{Line: 1, Column: 1, Offset: -1},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsValid(); got != tt.isValid {
				t.Errorf("Position.IsValid() = %v, want %v", got, tt.isValid)
			}

			if tt.isValid {
				if got := tt.pos.String(); got != tt.expected {
					t.Errorf("Position.String() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func TestSourceFile(t *testing.T) {
	sf := NewSourceFile("sq.qy", "def f(x):\r\n    return x\n")

	if got := sf.GetLine(1); got != "def f(x):" {
		t.Errorf("GetLine(1) = %q, want %q", got, "def f(x):")
	}
	if got := sf.GetLine(2); got != "    return x" {
		t.Errorf("GetLine(2) = %q", got)
	}
	if got := sf.GetLine(42); got != "" {
		t.Errorf("GetLine(42) = %q, want empty", got)
	}
}

func TestSnippet(t *testing.T) {
	sf := NewSourceFile("", "def f(x):\n\tfor i in x:\n")

	got := sf.Snippet(Position{Line: 2, Column: 2, Offset: 11})
	want := "   2 | \tfor i in x:\n     | \t^\n"
	if got != want {
		t.Errorf("Snippet() = %q, want %q", got, want)
	}

	if got := sf.Snippet(Position{}); got != "" {
		t.Errorf("Snippet(invalid) = %q, want empty", got)
	}
}
