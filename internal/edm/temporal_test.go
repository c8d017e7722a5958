package edm

import (
	"testing"
	"time"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "PT20H23M51S", expected: "20:23:51", ok: true},
		{input: "PT5M", expected: "00:05", ok: true},
		{input: "PT7H", expected: "07:00", ok: true},
		{input: "PT1H2M3S", expected: "01:02:03", ok: true},
		{input: "PT30S", expected: "00:00:30", ok: true},
		{input: "PT", ok: false},
		{input: "20:23", ok: false},
		{input: "P1D", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeTime(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizeTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("NormalizeTime(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDecodeTemporal(t *testing.T) {
	codec := &Codec{Syntax: SyntaxV2, Location: time.UTC}

	tests := []struct {
		name     string
		raw      interface{}
		typeName string
		expected string
	}{
		{name: "time duration", raw: "PT20H23M51S", typeName: TypeTime, expected: "20:23:51"},
		{name: "time minutes only", raw: "PT5M", typeName: TypeTime, expected: "00:05"},
		{name: "time of day passthrough", raw: "08:15:00", typeName: TypeTimeOfDay, expected: "08:15:00"},
		{name: "legacy date", raw: "/Date(1653855780000)/", typeName: TypeDateTime, expected: "2022-05-29 20:23:00"},
		{name: "legacy date with offset suffix", raw: "/Date(1653855780000+0120)/", typeName: TypeDateTime, expected: "2022-05-29 20:23:00"},
		{name: "iso timestamp", raw: "2022-05-29T20:23:00", typeName: TypeDateTime, expected: "2022-05-29 20:23:00"},
		{name: "offset timestamp", raw: "2022-05-29T22:23:00+02:00", typeName: TypeDateTimeOffset, expected: "2022-05-29 20:23:00"},
		{name: "date", raw: "2022-05-29", typeName: TypeDate, expected: "2022-05-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode(tt.raw, KindOf(tt.typeName), tt.typeName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Decode(%v) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestDecodeTemporalErrors(t *testing.T) {
	codec := NewCodec(SyntaxV4)

	if _, err := codec.Decode("noon", KindTime, TypeTime); err == nil {
		t.Error("expected error for unparseable time")
	}
	if _, err := codec.Decode("soon", KindDateTime, TypeDateTimeOffset); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestTimeValueFromTime(t *testing.T) {
	codec := &Codec{Syntax: SyntaxV2, Location: time.UTC}
	value := time.Date(2022, 5, 29, 9, 5, 7, 0, time.UTC)

	got, err := codec.EncodeFilterLiteral(value, KindTime, TypeTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "PT09H05M07S" {
		t.Errorf("expected PT09H05M07S, got %s", got)
	}
}
