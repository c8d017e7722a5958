// Package config loads client configuration from an optional file and
// prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPrefix is the environment variable prefix used by the CLI.
const DefaultPrefix = "WEBQUERY_"

// Load reads path (YAML, JSON or TOML by extension; optional when empty)
// and then environment variables starting with prefix into target.
// Environment variables win over the file. A double underscore addresses a
// nested key: WEBQUERY_HEADERS__SAP_CLIENT sets headers.sap_client. Keys are
// lowercased; callers restore any other spelling.
func Load(path, prefix string, target interface{}) error {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return fmt.Errorf("config file %s not found: %w", path, err)
			}
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || prefixUpper == "" || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		// WEBQUERY_BASE_URL -> base_url
		propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
		propKey = strings.ReplaceAll(propKey, "__", ".")
		propKey = strings.Trim(propKey, "._")
		if propKey != "" {
			v.Set(propKey, value)
		}
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}
