package slugs

import "testing"

func TestComponentSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Evening Lights", "evening-lights"},
		{"UPPER CASE", "upper-case"},
		{"file-name", "file-name"},
		{"Special: Characters!", "special-characters"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ComponentSlug(tt.in); got != tt.want {
				t.Fatalf("ComponentSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIndexSlug(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"12", "12", true},
		{`"wake-up"`, "wake-up", true},
		{"Morning Routine", "morning-routine", true},
		{"", "", false},
		{`""`, "", false},
		{"..", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := IndexSlug(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("IndexSlug(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
