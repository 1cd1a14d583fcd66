// Package routetable builds the in-memory Configuration Model and Route
// Table from parsed Hash-Format documents, and answers best-match
// lookups for inbound requests.
package routetable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/coerce"
	"github.com/opencitations/ramose/internal/hashformat"
)

// paramNameRe extracts "{name}" placeholders from a url_template.
var paramNameRe = regexp.MustCompile(`\{([^{}()]+)\}`)

// paramSpecRe parses a per-parameter field value of the form
// "type(shape)".
var paramSpecRe = regexp.MustCompile(`^\s*([^(]+)\((.+)\)\s*$`)

// fieldTypeRe matches repeated "type(field_name)" declarations inside a
// field_type value, e.g. "str(doi) int(count)".
var fieldTypeRe = regexp.MustCompile(`([^(\s]+)\(([^)]+)\)`)

// ParamSpec is a declared URL parameter's data type plus the regex body
// matching its lexical form.
type ParamSpec struct {
	Type  coerce.Kind
	Shape string
}

// FieldType associates a result column name with the coercion used to
// type it.
type FieldType struct {
	Field string
	Type  coerce.Kind
}

// Operation is one route's full declaration: URL shape, SPARQL
// template, result column types, and optional pre/postprocess chains.
type Operation struct {
	URLTemplate    string
	Params         map[string]ParamSpec
	Methods        map[string]bool
	SparqlTemplate string
	FieldTypes     []FieldType
	Preprocess     []addon.Call
	Postprocess    []addon.Call

	// Documentation-only fields.
	Description string
	Call        string
	OutputJSON  string
}

// FieldKind looks up the declared type for a result column, defaulting
// to str when the column was not listed in field_type.
func (o *Operation) FieldKind(field string) coerce.Kind {
	for _, ft := range o.FieldTypes {
		if ft.Field == field {
			return ft.Type
		}
	}
	return coerce.Str
}

// CompiledRoute is an Operation plus its compiled, anchored matcher.
type CompiledRoute struct {
	Operation  *Operation
	Pattern    *regexp.Regexp
	ParamNames []string
}

// Match reports whether path matches this route, returning the
// extracted named parameter values (raw, untyped strings) in that
// case.
func (c *CompiledRoute) Match(path string) (map[string]string, bool) {
	m := c.Pattern.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(c.ParamNames))
	for i, name := range c.ParamNames {
		params[name] = m[i+1]
	}
	return params, true
}

// Configuration is the parsed content of one .hf file: header fields
// plus its ordered list of compiled operations.
type Configuration struct {
	BaseURL          string
	Website          string
	EndpointURL      string
	SparqlHTTPMethod string
	AddonRef         string

	Title       string
	Version     string
	Description string
	Contacts    string
	License     string

	Routes []*CompiledRoute
}

// Load parses the Hash-Format document at path into a Configuration.
// reg resolves the addon functions named by any operation's
// preprocess/postprocess chains; it may be nil if no operation in the
// document references an addon.
func Load(path string, reg *addon.Registry) (*Configuration, error) {
	records, err := hashformat.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("routetable: %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("routetable: %s: empty configuration document", path)
	}
	return build(path, records, reg)
}

func build(source string, records []*hashformat.Record, reg *addon.Registry) (*Configuration, error) {
	header := records[0]

	baseURL, ok := header.Get("base")
	if !ok || baseURL == "" {
		return nil, fmt.Errorf("routetable: %s: header missing required field %q", source, "base")
	}
	endpointURL, ok := header.Get("endpoint")
	if !ok || endpointURL == "" {
		return nil, fmt.Errorf("routetable: %s: header missing required field %q", source, "endpoint")
	}

	method, _ := header.Get("method")
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "post"
	}
	if method != "get" && method != "post" {
		return nil, fmt.Errorf("routetable: %s: header field %q must be get or post, got %q", source, "method", method)
	}

	title, _ := header.Get("title")
	version, _ := header.Get("version")
	description, _ := header.Get("description")
	contacts, _ := header.Get("contacts")
	license, _ := header.Get("license")
	website, _ := header.Get("website")

	conf := &Configuration{
		BaseURL:          baseURL,
		Website:          website,
		EndpointURL:      endpointURL,
		SparqlHTTPMethod: method,
		Title:            title,
		Version:          version,
		Description:      description,
		Contacts:         contacts,
		License:          license,
	}

	if addonRef, ok := header.Get("addon"); ok && addonRef != "" {
		conf.AddonRef = addonRef
	}

	for _, rec := range records[1:] {
		route, err := compileOperation(source, conf.BaseURL, rec, reg)
		if err != nil {
			return nil, err
		}
		conf.Routes = append(conf.Routes, route)
	}

	return conf, nil
}

var knownOperationFields = map[string]bool{
	"url": true, "method": true, "sparql": true, "field_type": true,
	"preprocess": true, "postprocess": true, "description": true,
	"call": true, "output_json": true,
}

func compileOperation(source, baseURL string, rec *hashformat.Record, reg *addon.Registry) (*CompiledRoute, error) {
	urlTemplate, ok := rec.Get("url")
	if !ok || urlTemplate == "" {
		return nil, fmt.Errorf("routetable: %s: operation missing required field %q", source, "url")
	}
	methodField, ok := rec.Get("method")
	if !ok || methodField == "" {
		return nil, fmt.Errorf("routetable: %s: operation %s missing required field %q", source, urlTemplate, "method")
	}
	sparqlTemplate, ok := rec.Get("sparql")
	if !ok || sparqlTemplate == "" {
		return nil, fmt.Errorf("routetable: %s: operation %s missing required field %q", source, urlTemplate, "sparql")
	}
	fieldTypeField, ok := rec.Get("field_type")
	if !ok || fieldTypeField == "" {
		return nil, fmt.Errorf("routetable: %s: operation %s missing required field %q", source, urlTemplate, "field_type")
	}

	methods := make(map[string]bool)
	for _, m := range strings.Fields(methodField) {
		methods[strings.ToLower(m)] = true
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("routetable: %s: operation %s has no HTTP methods", source, urlTemplate)
	}

	var fieldTypes []FieldType
	for _, m := range fieldTypeRe.FindAllStringSubmatch(fieldTypeField, -1) {
		fieldTypes = append(fieldTypes, FieldType{Type: coerce.Kind(m[1]), Field: m[2]})
	}

	op := &Operation{
		URLTemplate:    urlTemplate,
		Methods:        methods,
		SparqlTemplate: sparqlTemplate,
		FieldTypes:     fieldTypes,
	}
	op.Description, _ = rec.Get("description")
	op.Call, _ = rec.Get("call")
	op.OutputJSON, _ = rec.Get("output_json")

	if pre, ok := rec.Get("preprocess"); ok && pre != "" {
		chain, err := addon.ParseChain(pre)
		if err != nil {
			return nil, fmt.Errorf("routetable: %s: operation %s: %w", source, urlTemplate, err)
		}
		if err := checkChainResolves(reg, chain, true); err != nil {
			return nil, fmt.Errorf("routetable: %s: operation %s: %w", source, urlTemplate, err)
		}
		op.Preprocess = chain
	}
	if post, ok := rec.Get("postprocess"); ok && post != "" {
		chain, err := addon.ParseChain(post)
		if err != nil {
			return nil, fmt.Errorf("routetable: %s: operation %s: %w", source, urlTemplate, err)
		}
		if err := checkChainResolves(reg, chain, false); err != nil {
			return nil, fmt.Errorf("routetable: %s: operation %s: %w", source, urlTemplate, err)
		}
		op.Postprocess = chain
	}

	names := paramNameRe.FindAllStringSubmatch(urlTemplate, -1)
	params := make(map[string]ParamSpec, len(names))
	var paramNames []string
	pattern := urlTemplate
	for _, nm := range names {
		name := nm[1]
		paramNames = append(paramNames, name)

		spec := ParamSpec{Type: coerce.Str, Shape: ".+"}
		if raw, ok := rec.Get(name); ok {
			m := paramSpecRe.FindStringSubmatch(raw)
			if m == nil {
				return nil, fmt.Errorf("routetable: %s: operation %s: malformed parameter spec %q for %q", source, urlTemplate, raw, name)
			}
			spec = ParamSpec{Type: coerce.Kind(strings.TrimSpace(m[1])), Shape: m[2]}
		}
		params[name] = spec

		pattern = strings.Replace(pattern, "{"+name+"}", "\x00"+name+"\x00", 1)
	}

	// Escape every literal segment of the template, then splice in the
	// parameter capture groups, so characters like "." and "/" in the
	// literal portions match themselves rather than acting as regex
	// metacharacters.
	segments := strings.Split(pattern, "\x00")
	var b strings.Builder
	b.WriteByte('^')
	b.WriteString(regexp.QuoteMeta(baseURL))
	i := 0
	for i < len(segments) {
		b.WriteString(regexp.QuoteMeta(segments[i]))
		i++
		if i < len(segments) {
			name := segments[i]
			i++
			b.WriteString("(" + params[name].Shape + ")")
		}
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("routetable: %s: operation %s: compiled pattern invalid: %w", source, urlTemplate, err)
	}

	op.Params = params

	return &CompiledRoute{
		Operation:  op,
		Pattern:    re,
		ParamNames: paramNames,
	}, nil
}

func checkChainResolves(reg *addon.Registry, chain []addon.Call, pre bool) error {
	if reg == nil {
		if len(chain) > 0 {
			return fmt.Errorf("addon chain references %q but no addon registry was supplied", chain[0].Name)
		}
		return nil
	}
	for _, call := range chain {
		var ok bool
		if pre {
			ok = reg.HasPre(call.Name)
		} else {
			ok = reg.HasPost(call.Name)
		}
		if !ok {
			return fmt.Errorf("addon function %q is not registered", call.Name)
		}
	}
	return nil
}

// RouteTable is the ordered list of loaded configurations, each
// contributing its operations to the lookup space.
type RouteTable struct {
	Configurations []*Configuration
}

// Add appends a configuration to the table in load order.
func (rt *RouteTable) Add(conf *Configuration) {
	rt.Configurations = append(rt.Configurations, conf)
}

// MatchResult classifies the outcome of a BestMatch lookup.
type MatchResult int

const (
	// NoMatch means no configuration's base_url prefixes the path, or
	// no operation's pattern matched within a configuration that did.
	NoMatch MatchResult = iota
	// MethodMismatch means a pattern matched but not for the request
	// method.
	MethodMismatch
	// Matched means a route matched the path and the method.
	Matched
)

// BestMatch strips any query string from rawURL and returns the first
// configuration/operation whose anchored pattern matches the path,
// iterating configurations in load order and, within one, operations
// in declaration order.
func (rt *RouteTable) BestMatch(method, rawURL string) (MatchResult, *Configuration, *CompiledRoute, map[string]string) {
	path := rawURL
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	method = strings.ToLower(method)

	for _, conf := range rt.Configurations {
		if !strings.HasPrefix(path, conf.BaseURL) {
			continue
		}
		for _, route := range conf.Routes {
			params, ok := route.Match(path)
			if !ok {
				continue
			}
			// The first URL-pattern match wins outright, per spec: the
			// method check is a subsequent step against this operation,
			// not a further search criterion. A method mismatch here
			// does not fall through to try other routes.
			if !route.Operation.Methods[method] {
				return MethodMismatch, nil, nil, nil
			}
			return Matched, conf, route, params
		}
	}
	return NoMatch, nil, nil, nil
}
