package webquery

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nlstn/go-webquery/internal/config"
	"github.com/nlstn/go-webquery/internal/protocol"
	"github.com/nlstn/go-webquery/internal/request"
	"github.com/nlstn/go-webquery/internal/version"
)

// Config describes a connection to a remote service.
type Config struct {
	// BaseURL is the service root, e.g. https://host/sap/opu/odata/sap/SRV.
	BaseURL string `mapstructure:"base_url"`
	// Protocol is odata2, odata4 or rest. Defaults to odata2.
	Protocol string `mapstructure:"protocol"`
	// Version is the OData v4 protocol version. Defaults to 4.01.
	Version string `mapstructure:"version"`
	// Timeout bounds every HTTP request of the default client.
	Timeout time.Duration `mapstructure:"timeout"`
	// Timezone interprets timestamps without an offset. Defaults to UTC.
	Timezone string `mapstructure:"timezone"`

	OffsetParam string `mapstructure:"offset_param"`
	LimitParam  string `mapstructure:"limit_param"`
	PageParam   string `mapstructure:"page_param"`
	PageBase    int    `mapstructure:"page_base"`
	SortParam   string `mapstructure:"sort_param"`
	OrderParam  string `mapstructure:"order_param"`
	RowsPath    string `mapstructure:"rows_path"`
	CountPath   string `mapstructure:"count_path"`

	// InlineCount requests the total count with every paged read.
	InlineCount bool `mapstructure:"inline_count"`
	// ProbeNextPage reads one row more than requested to detect more data.
	ProbeNextPage bool `mapstructure:"probe_next_page"`
	// MaxPageSize asks OData v4 services to page their results. Further pages
	// are announced through next links.
	MaxPageSize int `mapstructure:"max_page_size"`
	// UseBatch sends writes of more than one row as one $batch changeset.
	UseBatch bool `mapstructure:"use_batch"`
	// EscapeQuotes doubles single quotes inside string literals.
	EscapeQuotes bool `mapstructure:"escape_quotes"`

	// Headers are sent with every request. LoadConfig canonicalizes names
	// read from files and the environment, turning x_api_key into X-Api-Key.
	Headers map[string]string `mapstructure:"headers"`
	// Methods overrides the HTTP methods of writes, keyed by create, update
	// and delete.
	Methods map[string]string `mapstructure:"methods"`
}

// LoadConfig reads a configuration file (optional when path is empty) and
// WEBQUERY_* environment variables.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := config.Load(path, config.DefaultPrefix, &cfg); err != nil {
		return Config{}, err
	}
	cfg.Headers = headerNames(cfg.Headers)
	return cfg, nil
}

// headerNames restores header names from configuration keys, which are
// lowercased and cannot carry "-" in environment variable names.
func headerNames(in map[string]string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for name, value := range in {
		out[http.CanonicalHeaderKey(strings.ReplaceAll(name, "_", "-"))] = value
	}
	return out
}

// dialect resolves the protocol dialect of the configuration.
func (c Config) dialect() (protocol.Dialect, error) {
	name, err := protocol.ParseProtocol(c.Protocol)
	if err != nil {
		return protocol.Dialect{}, err
	}

	var v version.Version
	if c.Version != "" {
		v, err = version.Parse(c.Version)
		if err != nil {
			return protocol.Dialect{}, fmt.Errorf("invalid version %q: %w", c.Version, err)
		}
	}

	d, err := protocol.New(name, v, protocol.RESTParams{
		Offset: c.OffsetParam,
		Limit:  c.LimitParam,
		Sort:   c.SortParam,
		Order:  c.OrderParam,
		Rows:   c.RowsPath,
		Count:  c.CountPath,
	})
	if err != nil {
		return protocol.Dialect{}, err
	}
	if name != protocol.NameREST {
		if c.RowsPath != "" {
			d.RowsPath = c.RowsPath
		}
		if c.CountPath != "" {
			d.CountPath = c.CountPath
		}
	}

	codec := *d.Codec
	codec.EscapeQuotes = c.EscapeQuotes
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return protocol.Dialect{}, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		codec.Location = loc
	}
	return d.WithCodec(&codec), nil
}

// assemblerOptions maps the configuration onto request assembly options.
func (c Config) assemblerOptions() request.Options {
	opts := request.Options{
		OffsetParam:   c.OffsetParam,
		LimitParam:    c.LimitParam,
		PageParam:     c.PageParam,
		PageBase:      c.PageBase,
		SortParam:     c.SortParam,
		OrderParam:    c.OrderParam,
		InlineCount:   c.InlineCount,
		ProbeNextPage: c.ProbeNextPage,
		MaxPageSize:   c.MaxPageSize,
		Headers:       c.Headers,
	}
	for op, method := range c.Methods {
		method = strings.ToUpper(method)
		switch request.Operation(strings.ToLower(op)) {
		case request.OpCreate:
			opts.CreateMethod = method
		case request.OpUpdate:
			opts.UpdateMethod = method
		case request.OpDelete:
			opts.DeleteMethod = method
		}
	}
	return opts
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return &ConfigError{Component: "client", Message: "base URL is required"}
	}
	if c.MaxPageSize < 0 {
		return &ConfigError{Component: "client", Message: "max page size must not be negative"}
	}
	for op, method := range c.Methods {
		if _, err := request.ParseOperation(op); err != nil {
			return &ConfigError{Component: "client", Message: err.Error()}
		}
		switch strings.ToUpper(method) {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, "MERGE":
		default:
			return &ConfigError{Component: "client", Message: fmt.Sprintf("unsupported %s method %q", op, method)}
		}
	}
	return nil
}
