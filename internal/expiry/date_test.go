package expiry

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"01/02/2025", "2025-02-01", true},
		{"01/02/25", "2025-02-01", true},
		{"01022025", "2025-02-01", true},
		{"010225", "2025-02-01", true},
		{"  31/12/2027  ", "2027-12-31", true},
		{"29/02/2024", "2024-02-29", true}, // leap day
		{"29/02/2025", "", false},          // not a leap year
		{"31/04/2025", "", false},          // April has 30 days
		{"00/01/2025", "", false},
		{"1/2/2025", "", false}, // single-digit day/month not accepted
		{"2025-02-01", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
