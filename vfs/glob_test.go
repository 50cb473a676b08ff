package vfs

import "testing"

func TestListModeMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{pattern: "*", name: "anything.txt", want: true},
		{pattern: "", name: "anything.txt", want: true},
		{pattern: "*.x", name: "a.x", want: true},
		{pattern: "*.x", name: "a.X", want: true},
		{pattern: "*.x", name: "a.y", want: false},
		{pattern: "file?.txt", name: "file1.txt", want: true},
		{pattern: "file?.txt", name: "file12.txt", want: false},
		{pattern: "report-*.csv", name: "report-2024-01.csv", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.name, func(t *testing.T) {
			m := Shallow(tt.pattern)
			if got := m.Match(tt.name); got != tt.want {
				t.Errorf("Match(%q) against %q = %v, want %v", tt.name, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestListModeRecursive(t *testing.T) {
	m := Shallow("*")
	if m.IsRecursive() {
		t.Error("Shallow mode reports recursive")
	}
	r := Recursive("*")
	if !r.IsRecursive() {
		t.Error("Recursive mode reports shallow")
	}
}
