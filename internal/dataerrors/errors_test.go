package dataerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "Message only",
			err:      &ConfigError{Message: "missing primary key"},
			expected: "missing primary key",
		},
		{
			name: "Component and context",
			err: &ConfigError{
				Component: "filter",
				Dialect:   "v2",
				Operator:  "XOR",
				Message:   "logical operator not supported",
			},
			expected: `filter: logical operator not supported (operator "XOR", dialect "v2")`,
		},
		{
			name: "Wrapped error",
			err: &ConfigError{
				Component: "filter",
				Attribute: "CREATED_ON",
				Message:   "cannot encode value",
				Err:       errors.New("bad date"),
			},
			expected: `filter: cannot encode value (attribute "CREATED_ON"): bad date`,
		},
		{
			name:     "Empty",
			err:      &ConfigError{},
			expected: "configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMappingError_Error(t *testing.T) {
	err := &MappingError{
		Attribute:  "SUPPLIER__NAME",
		Navigation: "Supplier",
		Row:        3,
		Message:    "expected expanded data not found",
	}
	expected := `expected expanded data not found (attribute "SUPPLIER__NAME", navigation "Supplier", row "3")`
	if got := err.Error(); got != expected {
		t.Errorf("Error() = %q, want %q", got, expected)
	}

	noRow := &MappingError{Attribute: "A", Row: -1}
	if got := noRow.Error(); got != `mapping error (attribute "A")` {
		t.Errorf("unexpected message %q", got)
	}
}

func TestErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("building read: %w", &ConfigError{Message: "x"})
	if !errors.Is(wrapped, ErrConfiguration) {
		t.Error("expected wrapped ConfigError to match ErrConfiguration")
	}
	if errors.Is(wrapped, ErrMapping) {
		t.Error("ConfigError must not match ErrMapping")
	}

	mapping := fmt.Errorf("mapping: %w", &MappingError{Row: -1})
	if !errors.Is(mapping, ErrMapping) {
		t.Error("expected wrapped MappingError to match ErrMapping")
	}

	var target *MappingError
	if !errors.As(mapping, &target) {
		t.Error("expected errors.As to find MappingError")
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ConfigError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected ConfigError to unwrap to inner error")
	}
}
