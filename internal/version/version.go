// Package version parses and compares OData protocol versions.
package version

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Version represents an OData protocol version
type Version struct {
	Major int
	Minor int
}

// Well-known protocol versions.
var (
	V2   = Version{Major: 2, Minor: 0}
	V4   = Version{Major: 4, Minor: 0}
	V401 = Version{Major: 4, Minor: 1}
)

// String returns the version as a string in "Major.Minor" format
// For minor version 1, returns "4.01" to match OData convention
func (v Version) String() string {
	if v.Minor == 0 {
		return fmt.Sprintf("%d.0", v.Major)
	}
	if v.Minor < 10 {
		return fmt.Sprintf("%d.0%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// Supports returns whether this version supports a specific feature
func (v Version) Supports(feature string) bool {
	switch feature {
	case "in-operator":
		// The 'in' operator was added in OData 4.01
		return v.Major > 4 || (v.Major == 4 && v.Minor >= 1)
	case "contains":
		return v.Major >= 4
	case "substringof":
		return v.Major > 0 && v.Major < 4
	case "select":
		return v.Major >= 4
	case "count-parameter":
		return v.Major >= 4
	default:
		return false
	}
}

// parseVersion parses a version string like "4.0" or "4.01" into major and minor components.
// Returns an error if the version string is invalid.
func parseVersion(version string) (int, int, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0, 0, fmt.Errorf("empty version string")
	}

	// Servers may append a suffix, e.g. "2.0;NetFx".
	if i := strings.IndexByte(version, ';'); i >= 0 {
		version = strings.TrimSpace(version[:i])
	}

	parts := strings.Split(version, ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid major version in %s: %w", version, err)
	}

	minor := 0
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			// Treat invalid minor version as 0 but log it
			slog.Debug("Invalid OData minor version, treating as 0", "version", version, "error", err)
			minor = 0
		}
	}

	return major, minor, nil
}

// Parse parses a version string such as "2.0", "4.0" or "4.01".
func Parse(s string) (Version, error) {
	major, minor, err := parseVersion(s)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: major, Minor: minor}, nil
}

// FromHeader reads the protocol version a service declared in a response.
// The OData-Version header wins over the legacy DataServiceVersion header.
// A zero version is returned when neither header is usable.
func FromHeader(get func(string) string) Version {
	for _, name := range []string{"OData-Version", "DataServiceVersion"} {
		if raw := get(name); raw != "" {
			if v, err := Parse(raw); err == nil {
				return v
			}
		}
	}
	return Version{}
}
