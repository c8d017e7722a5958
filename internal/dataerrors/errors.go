package dataerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by ConfigError and MappingError through errors.Is.
var (
	ErrConfiguration = errors.New("webquery: configuration error")
	ErrMapping       = errors.New("webquery: mapping error")
)

// ConfigError reports a query that cannot be expressed for the target
// service. It is raised before any request leaves the process.
type ConfigError struct {
	// Component names the builder that rejected the query (e.g. "filter").
	Component string

	// Dialect is the protocol dialect in use, if relevant.
	Dialect string

	// Attribute is the alias of the offending attribute.
	Attribute string

	// Comparator is the offending comparator token.
	Comparator string

	// Operator is the offending logical operator.
	Operator string

	// Navigation is the navigation step that could not be resolved.
	Navigation string

	// Message is a human-readable error description.
	Message string

	// Err is an optional wrapped error for additional context.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("configuration error")
	}
	writeContext(&b, [][2]string{
		{"attribute", e.Attribute},
		{"comparator", e.Comparator},
		{"operator", e.Operator},
		{"navigation", e.Navigation},
		{"dialect", e.Dialect},
	})
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error, if any.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// MappingError reports a response that cannot be mapped onto the requested
// attributes. A single failing row aborts the whole response.
type MappingError struct {
	// Attribute is the alias of the attribute being mapped.
	Attribute string

	// Navigation is the navigation step that failed, if any.
	Navigation string

	// Row is the zero-based index of the row in the response, or -1.
	Row int

	// Message is a human-readable error description.
	Message string

	// Err is an optional wrapped error for additional context.
	Err error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("mapping error")
	}
	row := ""
	if e.Row >= 0 {
		row = fmt.Sprintf("%d", e.Row)
	}
	writeContext(&b, [][2]string{
		{"attribute", e.Attribute},
		{"navigation", e.Navigation},
		{"row", row},
	})
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error, if any.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

func writeContext(b *strings.Builder, pairs [][2]string) {
	first := true
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		if first {
			b.WriteString(" (")
			first = false
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s %q", p[0], p[1])
	}
	if !first {
		b.WriteString(")")
	}
}
