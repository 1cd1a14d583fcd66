// Package executor implements the Operation Executor: the seven-stage
// per-request pipeline that turns a matched route and its raw
// parameters into a served response body.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/coerce"
	"github.com/opencitations/ramose/internal/routetable"
	"github.com/opencitations/ramose/internal/transform"
	"github.com/opencitations/ramose/internal/typedtable"
	"github.com/opencitations/ramose/pkg/metrics"
)

// ErrKind classifies an Executor failure for HTTP status mapping, per
// the error handling design: ConfigError is a startup-time concern and
// is not represented here.
type ErrKind string

const (
	KindNotFound         ErrKind = "not_found"
	KindMethodNotAllowed ErrKind = "method_not_allowed"
	KindBadParameter     ErrKind = "bad_parameter"
	KindTimeout          ErrKind = "timeout"
	KindUpstreamError    ErrKind = "upstream_error"
	KindInternalError    ErrKind = "internal_error"
)

// Error is the Executor's classified failure type. Status is the HTTP
// status code a caller should respond with.
type Error struct {
	Kind    ErrKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, status int, msg string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: msg, Err: err}
}

// Request is the router-agnostic description of an inbound call the
// Executor needs: the matched path, its query string, and negotiation
// headers. Adapters for a specific router (gorilla/mux, bunrouter) are
// responsible for producing one of these from their own request type.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Accept string
}

// Result is a fully serialized response body ready to be written back
// to the caller unchanged.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
}

// StageFunc wraps one pipeline stage for tracing/metrics hooks.
type StageFunc func(ctx context.Context, stage string, fn func(ctx context.Context) error) error

func defaultStage(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Executor runs the seven-stage pipeline against a loaded RouteTable.
type Executor struct {
	Routes       *routetable.RouteTable
	Addons       *addon.Registry
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	// Stage, if set, wraps the preprocess, remote_fetch and postprocess
	// stages (used to attach tracing spans or record per-stage metrics);
	// the other stages run unwrapped. It defaults to a pass-through.
	Stage StageFunc
}

// New returns an Executor with the teacher-derived defaults: a 30s
// remote fetch timeout and a plain http.Client.
func New(routes *routetable.RouteTable, addons *addon.Registry) *Executor {
	return &Executor{
		Routes:       routes,
		Addons:       addons,
		HTTPClient:   http.DefaultClient,
		FetchTimeout: 30 * time.Second,
		Stage:        defaultStage,
	}
}

func (e *Executor) stage() StageFunc {
	if e.Stage != nil {
		return e.Stage
	}
	return defaultStage
}

// Execute runs the full pipeline for one inbound request.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	// Stage 1: route match.
	matchResult, conf, route, rawParams := e.Routes.BestMatch(req.Method, req.Path)
	switch matchResult {
	case routetable.NoMatch:
		return nil, newError(KindNotFound, http.StatusNotFound, fmt.Sprintf("no operation matches %s", req.Path), nil)
	case routetable.MethodMismatch:
		return nil, newError(KindMethodNotAllowed, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed for %s", req.Method, req.Path), nil)
	}
	op := route.Operation

	// Stage 2: parameter extraction & typing. Each parameter's typed
	// string form, not the raw captured string, is what's substituted
	// into the query in stage 4 and handed to the preprocess chain,
	// except for str-typed parameters, which substitute the raw value
	// unchanged (the str coercion lowercases, and the original never
	// applies that lowering before substitution).
	typedParams := make(map[string]string, len(rawParams))
	for name, raw := range rawParams {
		spec := op.Params[name]
		val, err := coerce.Coerce(spec.Type, raw)
		if err != nil {
			return nil, newError(KindBadParameter, http.StatusBadRequest,
				fmt.Sprintf("parameter %q not compliant with declared type %q", name, spec.Type), err)
		}
		if spec.Type == coerce.Str {
			typedParams[name] = raw
		} else {
			typedParams[name] = val.String()
		}
	}

	// Stage 3: preprocess chain.
	params := typedParams
	if len(op.Preprocess) > 0 {
		if e.Addons == nil {
			return nil, newError(KindInternalError, http.StatusInternalServerError, "operation declares a preprocess chain but no addon registry is configured", nil)
		}
		var err error
		if err = e.stage()(ctx, "preprocess", func(ctx context.Context) error {
			var stageErr error
			params, stageErr = e.Addons.RunPre(op.Preprocess, params)
			return stageErr
		}); err != nil {
			return nil, newError(KindInternalError, http.StatusInternalServerError, "preprocess chain failed", err)
		}
	}

	// Stage 4: SPARQL substitution.
	query := op.SparqlTemplate
	for name, value := range params {
		query = strings.ReplaceAll(query, "[["+name+"]]", value)
	}

	// Stage 5: remote fetch — the pipeline's sole suspension point.
	var csvBody []byte
	err := e.stage()(ctx, "remote_fetch", func(ctx context.Context) error {
		body, ferr := e.fetch(ctx, conf, query)
		csvBody = body
		return ferr
	})
	if err != nil {
		var execErr *Error
		if asExecutorError(err, &execErr) {
			return nil, execErr
		}
		return nil, newError(KindInternalError, http.StatusInternalServerError, "remote fetch failed", err)
	}

	// Stage 6: typed table construction.
	table, err := typedtable.FromCSV(bytes.NewReader(csvBody), op.FieldKind)
	if err != nil {
		return nil, newError(KindInternalError, http.StatusInternalServerError, "failed to parse remote result", err)
	}

	// Stage 7a: postprocess chain.
	if len(op.Postprocess) > 0 {
		if e.Addons == nil {
			return nil, newError(KindInternalError, http.StatusInternalServerError, "operation declares a postprocess chain but no addon registry is configured", nil)
		}
		if err := e.stage()(ctx, "postprocess", func(ctx context.Context) error {
			objects := table.ToObjects()
			objects, perr := e.Addons.RunPost(op.Postprocess, objects)
			if perr != nil {
				return perr
			}
			rebuilt, rerr := typedtable.FromObjects(table.Header, objects, op.FieldKind)
			if rerr != nil {
				return rerr
			}
			table = rebuilt
			return nil
		}); err != nil {
			return nil, newError(KindInternalError, http.StatusInternalServerError, "postprocess chain failed", err)
		}
	}

	// Stage 7b: declarative transforms & serialization.
	params7, err := parseTransformParams(req.Query)
	if err != nil {
		return nil, newError(KindBadParameter, http.StatusBadRequest, "malformed query-string transform", err)
	}

	transform.ApplyExclude(table, params7.Exclude)
	if err := transform.ApplyFilters(table, params7.Filters); err != nil {
		return nil, newError(KindBadParameter, http.StatusBadRequest, "malformed filter", err)
	}
	transform.ApplySort(table, params7.Sort)

	format := transform.NegotiateFormat(req.Query.Get("format"), req.Accept)

	if format == "csv" {
		var buf bytes.Buffer
		if err := table.ToCSV(&buf); err != nil {
			return nil, newError(KindInternalError, http.StatusInternalServerError, "failed to serialize csv", err)
		}
		return &Result{Status: http.StatusOK, ContentType: "text/csv", Body: buf.Bytes()}, nil
	}

	objects := table.ToObjects()
	objects, err = transform.ApplyJSONRestructure(objects, params7.JSON)
	if err != nil {
		return nil, newError(KindBadParameter, http.StatusBadRequest, "malformed json restructuring rule", err)
	}
	body, err := marshalJSON(objects)
	if err != nil {
		return nil, newError(KindInternalError, http.StatusInternalServerError, "failed to serialize json", err)
	}
	return &Result{Status: http.StatusOK, ContentType: "application/json", Body: body}, nil
}

func asExecutorError(err error, out **Error) bool {
	if e, ok := err.(*Error); ok {
		*out = e
		return true
	}
	return false
}

// fetch executes the operation's SPARQL query against the
// configuration's remote endpoint, returning the raw CSV response body.
func (e *Executor) fetch(ctx context.Context, conf *routetable.Configuration, query string) (body []byte, err error) {
	timeout := e.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.GetProvider().RecordRemoteFetch(conf.EndpointURL, time.Since(start), err)
	}()

	var httpReq *http.Request
	if conf.SparqlHTTPMethod == "get" {
		u := conf.EndpointURL + "?query=" + url.QueryEscape(query)
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, conf.EndpointURL, strings.NewReader(query))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/sparql-query")
		}
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/csv")

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, newError(KindTimeout, http.StatusRequestTimeout, "remote endpoint did not respond in time", err)
		}
		return nil, newError(KindUpstreamError, http.StatusBadGateway, "remote endpoint request failed", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindUpstreamError, http.StatusBadGateway, "failed to read remote response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindUpstreamError, resp.StatusCode, fmt.Sprintf("remote endpoint returned status %d", resp.StatusCode), nil)
	}
	return body, nil
}

func marshalJSON(objects []map[string]any) ([]byte, error) {
	if objects == nil {
		objects = []map[string]any{}
	}
	return json.Marshal(objects)
}

func parseTransformParams(q url.Values) (*transform.Params, error) {
	p := &transform.Params{}

	p.Exclude = append(p.Exclude, q["exclude"]...)
	p.Exclude = append(p.Exclude, q["require"]...)

	for _, raw := range q["filter"] {
		f, err := transform.ParseFilter(raw)
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, f)
	}

	p.Sort = append(p.Sort, q["sort"]...)

	for _, raw := range q["json"] {
		r, err := transform.ParseJSONRule(raw)
		if err != nil {
			return nil, err
		}
		p.JSON = append(p.JSON, r)
	}

	return p, nil
}
