package version

import (
	"net/http"
	"testing"
)

func TestVersion_String(t *testing.T) {
	tests := []struct {
		name     string
		version  Version
		expected string
	}{
		{"4.0", Version{4, 0}, "4.0"},
		{"4.01", Version{4, 1}, "4.01"},
		{"4.12", Version{4, 12}, "4.12"},
		{"5.0", Version{5, 0}, "5.0"},
		{"2.0", Version{2, 0}, "2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.version.String()
			if result != tt.expected {
				t.Errorf("Version.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestVersion_Supports(t *testing.T) {
	tests := []struct {
		name     string
		version  Version
		feature  string
		expected bool
	}{
		{"4.0 in-operator", Version{4, 0}, "in-operator", false},
		{"4.01 in-operator", Version{4, 1}, "in-operator", true},
		{"2.0 in-operator", Version{2, 0}, "in-operator", false},
		{"2.0 substringof", Version{2, 0}, "substringof", true},
		{"4.0 substringof", Version{4, 0}, "substringof", false},
		{"4.0 contains", Version{4, 0}, "contains", true},
		{"3.0 select", Version{3, 0}, "select", false},
		{"4.0 unknown", Version{4, 0}, "unknown-feature", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.version.Supports(tt.feature)
			if result != tt.expected {
				t.Errorf("%v.Supports(%q) = %v, want %v", tt.version, tt.feature, result, tt.expected)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedMajor int
		expectedMinor int
		expectError   bool
	}{
		{"4.0", "4.0", 4, 0, false},
		{"4.01", "4.01", 4, 1, false},
		{"4", "4", 4, 0, false},
		{"suffix", "2.0;NetFx", 2, 0, false},
		{"invalid minor", "4.x", 4, 0, false},
		{"with spaces", "  4.0  ", 4, 0, false},
		{"empty string", "", 0, 0, true},
		{"invalid", "abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			major, minor, err := parseVersion(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("parseVersion(%q) expected error but got none", tt.input)
				}
			} else if err != nil {
				t.Errorf("parseVersion(%q) unexpected error: %v", tt.input, err)
			}
			if major != tt.expectedMajor || minor != tt.expectedMinor {
				t.Errorf("parseVersion(%q) = (%d, %d), want (%d, %d)",
					tt.input, major, minor, tt.expectedMajor, tt.expectedMinor)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
		wantErr  bool
	}{
		{"2.0", V2, false},
		{"2.0;NetFx", V2, false},
		{"3.0", Version{Major: 3}, false},
		{"4.0", V4, false},
		{"4.01", V401, false},
		{"", Version{}, true},
		{"x.1", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		name     string
		headers  http.Header
		expected Version
	}{
		{"odata v4", http.Header{"Odata-Version": {"4.0"}}, V4},
		{"legacy", http.Header{"Dataserviceversion": {"2.0;"}}, V2},
		{"both", http.Header{"Odata-Version": {"4.01"}, "Dataserviceversion": {"2.0"}}, V401},
		{"none", http.Header{}, Version{}},
		{"garbage", http.Header{"Odata-Version": {"abc"}}, Version{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromHeader(tt.headers.Get); got != tt.expected {
				t.Errorf("FromHeader() = %v, want %v", got, tt.expected)
			}
		})
	}
}
