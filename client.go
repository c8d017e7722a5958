package webquery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-webquery/internal/actions"
	"github.com/nlstn/go-webquery/internal/batch"
	"github.com/nlstn/go-webquery/internal/etag"
	"github.com/nlstn/go-webquery/internal/observability"
	"github.com/nlstn/go-webquery/internal/protocol"
	"github.com/nlstn/go-webquery/internal/request"
	"github.com/nlstn/go-webquery/internal/response"
	"github.com/nlstn/go-webquery/internal/version"
)

// Client reads and writes the collections of one remote service. It is safe
// for concurrent use.
type Client struct {
	cfg       Config
	dialect   protocol.Dialect
	assembler *request.Assembler
	actions   *actions.Builder
	batch     *batch.Builder
	mapper    *response.Mapper

	http        Doer
	logger      *slog.Logger
	obsOpts     []observability.Option
	obs         *observability.Config
	newBoundary func() string
}

// WriteResult is the outcome of Create, Update and Delete.
type WriteResult struct {
	// Affected is the number of rows the service accepted.
	Affected int `json:"affected"`
	// Rows holds the entities returned by the service, mapped onto the
	// attributes of the object. Services answering 204 return none.
	Rows []Row `json:"rows,omitempty"`
}

// New creates a client for the configured service.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d, err := cfg.dialect()
	if err != nil {
		return nil, &ConfigError{Component: "client", Message: "invalid protocol configuration", Err: err}
	}

	c := &Client{
		cfg:     cfg,
		dialect: d,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.obs = observability.NewConfig(c.obsOpts...)
	if err := c.obs.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	c.assembler = request.New(d, cfg.assemblerOptions())
	c.actions = actions.New(c.assembler)
	c.batch = batch.New(d, cfg.BaseURL)
	c.batch.NewBoundary = c.newBoundary
	headers := make(map[string]string, len(cfg.Headers)+len(d.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	for k, v := range d.Headers {
		headers[k] = v
	}
	c.batch.Headers = headers
	c.mapper = response.NewMapper(d.Codec)
	return c, nil
}

// Dialect returns the name of the protocol dialect in use.
func (c *Client) Dialect() string {
	return c.dialect.String()
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// BuildRead assembles the read request of q without sending it.
func (c *Client) BuildRead(q *Query) (*Request, error) {
	return c.assembler.BuildRead(q)
}

// BuildReadByKey assembles the read-by-key request of q without sending it.
func (c *Client) BuildReadByKey(q *Query) (*Request, error) {
	return c.assembler.BuildReadByKey(q)
}

// BuildCount assembles the count request of q without sending it.
func (c *Client) BuildCount(q *Query) (*Request, error) {
	return c.assembler.BuildCount(q)
}

// BuildWrite assembles one write request per row without sending them.
func (c *Client) BuildWrite(op Operation, obj *Object, rows []Row) ([]*Request, error) {
	return c.assembler.BuildWrite(op, obj, rows)
}

// BuildInvoke assembles the request invoking def with args without sending it.
func (c *Client) BuildInvoke(def *OperationDef, args map[string]interface{}) (*Request, error) {
	return c.actions.Build(def, args)
}

// BuildBatch wraps reqs into one $batch request without sending it.
func (c *Client) BuildBatch(reqs []*Request) (*Request, error) {
	if !c.dialect.IsOData() {
		return nil, &ConfigError{Component: "batch", Dialect: c.dialect.String(), Message: "batch requests require an OData service"}
	}
	return c.batch.Build(reqs)
}

// MapResponse maps a read response body onto the columns of q.
func (c *Client) MapResponse(body []byte, q *Query) (*ResultSet, error) {
	if q == nil || q.Object == nil {
		return nil, &ConfigError{Component: "client", Message: "query has no object"}
	}
	doc, err := response.Parse(body)
	if err != nil {
		return nil, &MappingError{Row: -1, Message: "response is not valid JSON", Err: err}
	}
	return c.mapper.Map(doc, q, response.LayoutFor(c.dialect, q.Object, c.assembler.Probes(q.Page)))
}

// Read reads the rows selected by q. When a page was requested and the
// service reported no total, the total is fetched from the count endpoint if
// the dialect has one.
func (c *Client) Read(ctx context.Context, q *Query) (*ResultSet, error) {
	collection := collectionOf(q)
	ctx, span := c.obs.Tracer().StartRead(ctx, collection, false)
	defer span.End()
	timing := observability.StartServerTiming(ctx, "webquery.read")
	defer timing.Stop()

	r, err := c.assembler.BuildRead(q)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpRead, err)
	}
	rep, err := c.execute(ctx, span, collection, observability.OpRead, r)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpRead, err)
	}
	rs, err := c.MapResponse(rep.body, q)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpRead, err)
	}

	if q.Page.Requested() && !rs.TotalExact && c.dialect.CanCount() {
		if total, _ := c.Count(ctx, q); total != nil {
			rs.Total = total
			rs.TotalExact = true
		}
	}

	span.SetAttributes(observability.RowCountAttr(len(rs.Rows)))
	c.obs.Metrics().RecordRows(ctx, collection, len(rs.Rows))
	return rs, nil
}

// ReadByKey reads the single entity addressed by q.Key.
func (c *Client) ReadByKey(ctx context.Context, q *Query) (Row, error) {
	collection := collectionOf(q)
	ctx, span := c.obs.Tracer().StartRead(ctx, collection, true)
	defer span.End()

	r, err := c.assembler.BuildReadByKey(q)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpReadByKey, err)
	}
	rep, err := c.execute(ctx, span, collection, observability.OpReadByKey, r)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpReadByKey, err)
	}
	row, err := c.mapEntity(rep.body, q.Columns)
	if err != nil {
		return nil, c.fail(ctx, span, collection, observability.OpReadByKey, err)
	}
	if row == nil {
		err = &MappingError{Row: -1, Message: "response carries no entity"}
		return nil, c.fail(ctx, span, collection, observability.OpReadByKey, err)
	}
	return withHeaderTag(row, rep.header), nil
}

// Count returns the number of rows matching the filters of q. Transport and
// service failures are logged and reported as an unknown count (nil, nil);
// only queries that cannot be built return an error.
func (c *Client) Count(ctx context.Context, q *Query) (*int64, error) {
	collection := collectionOf(q)
	r, err := c.assembler.BuildCount(q)
	if err != nil {
		return nil, err
	}

	ctx, span := c.obs.Tracer().StartCount(ctx, collection)
	defer span.End()

	rep, err := c.execute(ctx, span, collection, observability.OpCount, r)
	if err != nil {
		c.countFailed(ctx, span, collection, err)
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(rep.body)), 10, 64)
	if err != nil {
		c.countFailed(ctx, span, collection, fmt.Errorf("invalid count response: %w", err))
		return nil, nil
	}
	return &n, nil
}

func (c *Client) countFailed(ctx context.Context, span trace.Span, collection string, err error) {
	c.obs.Tracer().RecordError(span, err)
	c.obs.Metrics().RecordCountFailure(ctx, collection)
	observability.LoggerWithTrace(ctx, c.logger).Warn("Count failed, total is unknown",
		observability.LogFieldCollection, collection,
		observability.LogFieldError, err)
}

// Create inserts rows into the collection of obj.
func (c *Client) Create(ctx context.Context, obj *Object, rows []Row) (*WriteResult, error) {
	return c.write(ctx, OpCreate, obj, rows)
}

// Update changes the rows of obj addressed by their key values.
func (c *Client) Update(ctx context.Context, obj *Object, rows []Row) (*WriteResult, error) {
	return c.write(ctx, OpUpdate, obj, rows)
}

// Delete removes the rows of obj addressed by their key values.
func (c *Client) Delete(ctx context.Context, obj *Object, rows []Row) (*WriteResult, error) {
	return c.write(ctx, OpDelete, obj, rows)
}

// write sends one request per row, or a single changeset when batching is
// enabled. On error the result reports the writes that succeeded before it.
func (c *Client) write(ctx context.Context, op Operation, obj *Object, rows []Row) (*WriteResult, error) {
	reqs, err := c.assembler.BuildWrite(op, obj, rows)
	if err != nil {
		return nil, err
	}
	res := &WriteResult{}
	if len(reqs) == 0 {
		return res, nil
	}

	operation := string(op)
	ctx, span := c.obs.Tracer().StartWrite(ctx, obj.Collection, operation, len(reqs))
	defer span.End()

	if c.cfg.UseBatch && len(reqs) > 1 && c.dialect.IsOData() {
		responses, err := c.sendBatch(ctx, span, obj.Collection, reqs)
		if err != nil {
			return nil, c.fail(ctx, span, obj.Collection, operation, err)
		}
		for _, br := range responses {
			if !br.OK() {
				return nil, c.fail(ctx, span, obj.Collection, operation, newRemoteError(br.StatusCode, br.Body))
			}
			if err := c.collect(res, obj, br.Header, br.Body); err != nil {
				return nil, c.fail(ctx, span, obj.Collection, operation, err)
			}
		}
		return res, nil
	}

	for _, r := range reqs {
		rep, err := c.execute(ctx, span, obj.Collection, operation, r)
		if err != nil {
			return res, c.fail(ctx, span, obj.Collection, operation, err)
		}
		if err := c.collect(res, obj, rep.header, rep.body); err != nil {
			return res, c.fail(ctx, span, obj.Collection, operation, err)
		}
	}
	return res, nil
}

// collect counts one accepted write and maps the entity it returned, if any.
func (c *Client) collect(res *WriteResult, obj *Object, header http.Header, body []byte) error {
	res.Affected++
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	row, err := c.mapEntity(body, obj.Attributes)
	if err != nil {
		return err
	}
	if row != nil {
		res.Rows = append(res.Rows, withHeaderTag(row, header))
	}
	return nil
}

// withHeaderTag keeps the ETag header on row unless the entity carried its
// own tag.
func withHeaderTag(row Row, header http.Header) Row {
	if _, ok := row[ETagKey]; !ok {
		if tag := etag.FromHeader(header); tag != "" {
			row[ETagKey] = tag
		}
	}
	return row
}

// mapEntity maps the single entity of body. It returns nil if the body holds
// no entity at the dialect's entity path.
func (c *Client) mapEntity(body []byte, attrs []*Attribute) (Row, error) {
	doc, err := response.Parse(body)
	if err != nil {
		return nil, &MappingError{Row: -1, Message: "response is not valid JSON", Err: err}
	}
	raw, ok := response.Lookup(doc, c.dialect.EntityPath)
	if !ok {
		return nil, nil
	}
	entity, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return c.mapper.MapRow(entity, attrs)
}

// Batch sends reqs as one $batch request. Writes share one changeset; reads
// are sent as standalone parts. The sub-responses are returned in order and
// are not checked for failure.
func (c *Client) Batch(ctx context.Context, reqs []*Request) ([]BatchResponse, error) {
	ctx, span := c.obs.Tracer().StartBatch(ctx, len(reqs))
	defer span.End()

	responses, err := c.sendBatch(ctx, span, "", reqs)
	if err != nil {
		return nil, c.fail(ctx, span, "", observability.OpBatch, err)
	}
	return responses, nil
}

func (c *Client) sendBatch(ctx context.Context, span trace.Span, collection string, reqs []*Request) ([]batch.Response, error) {
	envelope, err := c.BuildBatch(reqs)
	if err != nil {
		return nil, err
	}
	c.obs.Metrics().RecordBatchSize(ctx, len(reqs))
	rep, err := c.execute(ctx, span, collection, observability.OpBatch, envelope)
	if err != nil {
		return nil, err
	}
	responses, err := batch.ParseResponse(rep.header.Get("Content-Type"), bytes.NewReader(rep.body))
	if err != nil {
		return nil, &MappingError{Row: -1, Message: "invalid batch response", Err: err}
	}
	return responses, nil
}

// Invoke calls a service operation and returns its decoded result. Entity
// and collection results are returned as raw JSON objects and arrays.
func (c *Client) Invoke(ctx context.Context, def *OperationDef, args map[string]interface{}) (interface{}, error) {
	name := ""
	if def != nil {
		name = def.Name
	}
	ctx, span := c.obs.Tracer().StartInvoke(ctx, name)
	defer span.End()

	r, err := c.actions.Build(def, args)
	if err != nil {
		return nil, c.fail(ctx, span, name, observability.OpInvoke, err)
	}
	rep, err := c.execute(ctx, span, name, observability.OpInvoke, r)
	if err != nil {
		return nil, c.fail(ctx, span, name, observability.OpInvoke, err)
	}
	result, err := actions.Result(c.dialect, def, rep.body)
	if err != nil {
		return nil, c.fail(ctx, span, name, observability.OpInvoke, err)
	}
	return result, nil
}

// reply is a successful HTTP response with its body read.
type reply struct {
	header http.Header
	body   []byte
}

// execute sends r and reads the response. Status codes of 400 and above
// become a *RemoteError.
func (c *Client) execute(ctx context.Context, span trace.Span, collection, operation string, r *Request) (*reply, error) {
	tracer := c.obs.Tracer()
	tracer.SetRequest(span, r.Method, r.Target(), c.obs.EnableTargetTracing)
	logger := observability.LoggerWithTrace(ctx, c.logger)
	logger.Debug("Sending request",
		observability.LogFieldCollection, collection,
		observability.LogFieldOperation, operation,
		"method", r.Method,
		observability.LogFieldURL, r.URL(c.cfg.BaseURL))

	req, err := r.HTTPRequest(ctx, c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.obs.Metrics().RecordRequest(ctx, collection, operation, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.Path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug("Failed to close response body", observability.LogFieldError, closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	c.obs.Metrics().RecordRequest(ctx, collection, operation, resp.StatusCode, duration)
	tracer.SetHTTPStatus(ctx, resp.StatusCode)
	if c.obs.RemoteTimingEnabled() {
		if remote := observability.ParseRemoteTiming(resp.Header); len(remote) > 0 {
			span.SetAttributes(observability.RemoteTimingAttrs(remote)...)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	logger.Debug("Received response",
		observability.LogFieldCollection, collection,
		"status", resp.StatusCode,
		observability.LogFieldDuration, duration.Milliseconds())
	if declared := version.FromHeader(resp.Header.Get); c.dialect.IsOData() && !declared.IsZero() && declared.Major != c.dialect.Version.Major {
		logger.Warn("Service answered with a different protocol version",
			"declared", declared.String(),
			"dialect", c.dialect.String())
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newRemoteError(resp.StatusCode, body)
	}
	return &reply{header: resp.Header, body: body}, nil
}

// fail records err on the span and in metrics and returns it.
func (c *Client) fail(ctx context.Context, span trace.Span, collection, operation string, err error) error {
	c.obs.Tracer().RecordError(span, err)
	c.obs.Metrics().RecordError(ctx, collection, operation, errorType(err))
	return err
}

func collectionOf(q *Query) string {
	if q == nil || q.Object == nil {
		return ""
	}
	return q.Object.Collection
}
