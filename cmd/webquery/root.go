package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	webquery "github.com/nlstn/go-webquery"
	"github.com/nlstn/go-webquery/internal/querydoc"
)

type options struct {
	configPath string
	queryPath  string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "webquery",
		Short: "webquery - read and write OData and REST services as tables",
		Long: `webquery turns query documents into OData v2, OData v4 or REST requests
and maps the responses back into rows.

The connection is read from --config and WEBQUERY_* environment variables,
e.g. WEBQUERY_BASE_URL=https://host/odata WEBQUERY_PROTOCOL=odata4.
Nested keys use a double underscore: WEBQUERY_HEADERS__X_API_KEY=secret
sends the header X-Api-Key; underscores in header names become dashes.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "connection configuration file (yaml or json)")
	flags.StringVarP(&opts.queryPath, "query", "q", "", "query document (yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(newBuildCmd(opts), newMapCmd(opts), newReadCmd(opts), newInvokeCmd(opts))
	return cmd
}

// newLogger writes to w with the configured level and format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// session is everything a subcommand needs.
type session struct {
	client *webquery.Client
	doc    *querydoc.Document
	object *webquery.Object
	query  *webquery.Query
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	if o.queryPath == "" {
		return nil, fmt.Errorf("--query is required")
	}
	logger, err := newLogger(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
	if err != nil {
		return nil, err
	}
	cfg, err := webquery.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	client, err := webquery.New(cfg, webquery.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	doc, err := querydoc.Load(o.queryPath)
	if err != nil {
		return nil, err
	}
	s := &session{client: client, doc: doc}
	// Operation documents may omit the object.
	if doc.Operation != nil && doc.Object.Collection == "" {
		logger.Debug("Loaded operation document", "operation", doc.Operation.Name, "dialect", client.Dialect())
		return s, nil
	}
	if s.object, err = doc.BuildObject(); err != nil {
		return nil, err
	}
	if s.query, err = doc.BuildQuery(s.object); err != nil {
		return nil, err
	}
	logger.Debug("Loaded query document",
		"object", s.object.Alias,
		"collection", s.object.Collection,
		"dialect", client.Dialect())
	return s, nil
}
