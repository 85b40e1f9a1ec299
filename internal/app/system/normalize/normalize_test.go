package normalize

import "testing"

func TestDivision(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Division Harbor North", "harbor north"},
		{"DIVISION HARBOR NORTH", "harbor north"},
		{"  Div. Harbor North  ", "harbor north"},
		{"Harbor North", "harbor north"},
		{"Division São Paulo", "sao paulo"},
		{"Division Harbor North HQ", "harbor north"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Division(tt.input)
			if got != tt.want {
				t.Errorf("Division(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Region East", "east"},
		{"REGION EAST", "east"},
		{"  Rgn East ", "east"},
		{"East", "east"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Region(tt.input)
			if got != tt.want {
				t.Errorf("Region(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsRegionStaff(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Region East", true},
		{"REGION EAST STAFF", true},
		{"Division Harbor North", false},
		{"Harbor North", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsRegionStaff(tt.input); got != tt.want {
				t.Errorf("IsRegionStaff(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
