// Package addon implements the function-chain protocol used to run
// operator-supplied pre/postprocess code around a request. Where the
// original implementation resolved addon functions dynamically off a
// loaded Python module, this port registers them statically: a Go binary
// embedding RAMOSE imports the addon packages it needs and calls
// Register before the route table is loaded. There is no dynamic code
// loading at runtime.
package addon

import (
	"fmt"
	"strings"
)

// PreFunc transforms the raw path-parameter values of a request before
// they are substituted into the SPARQL template. params is keyed by
// parameter name; args are the addon's own comma-separated arguments
// taken from the Hash-Format "preprocess" field. It returns the replacement
// parameter map.
type PreFunc func(params map[string]string, args []string) (map[string]string, error)

// PostFunc transforms the decoded JSON result body after SPARQL
// execution and typed-table construction but before declarative
// query-string transforms are applied. body is the "data" payload as
// produced by the Operation Executor: a slice of maps of string to
// string/number/etc. It returns the replacement body.
type PostFunc func(body []map[string]any, args []string) ([]map[string]any, error)

// Registry holds the addon functions a RAMOSE deployment has compiled
// in. It is populated once at startup via Register/RegisterPost and is
// safe for concurrent read-only use afterward.
type Registry struct {
	pre  map[string]PreFunc
	post map[string]PostFunc
}

// NewRegistry returns an empty addon registry.
func NewRegistry() *Registry {
	return &Registry{
		pre:  make(map[string]PreFunc),
		post: make(map[string]PostFunc),
	}
}

// Register adds a preprocess function under name, overwriting any
// previous registration with the same name.
func (r *Registry) Register(name string, fn PreFunc) {
	r.pre[name] = fn
}

// RegisterPost adds a postprocess function under name, overwriting any
// previous registration with the same name.
func (r *Registry) RegisterPost(name string, fn PostFunc) {
	r.post[name] = fn
}

// HasPre reports whether a preprocess function is registered under name.
func (r *Registry) HasPre(name string) bool {
	_, ok := r.pre[name]
	return ok
}

// HasPost reports whether a postprocess function is registered under name.
func (r *Registry) HasPost(name string) bool {
	_, ok := r.post[name]
	return ok
}

// Call chain describes one step of a "-->"-joined addon chain as read
// from a Hash-Format "preprocess"/"postprocess" field: a function name plus its
// literal, comma-separated arguments.
type Call struct {
	Name string
	Args []string
}

// ParseChain splits a Hash-Format preprocess/postprocess field into its ordered list
// of calls. Steps are separated by "-->"; each step is "name" or
// "name(arg1,arg2,...)". Arguments are split on commas outside quotes and
// trimmed of surrounding whitespace, mirroring the original's use of
// Python's csv.reader to tolerate quoted commas inside an argument.
func ParseChain(field string) ([]Call, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}

	var calls []Call
	for _, step := range strings.Split(field, "-->") {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}

		open := strings.IndexByte(step, '(')
		if open < 0 {
			calls = append(calls, Call{Name: step})
			continue
		}
		if !strings.HasSuffix(step, ")") {
			return nil, fmt.Errorf("addon: unterminated argument list in %q", step)
		}
		name := strings.TrimSpace(step[:open])
		argStr := step[open+1 : len(step)-1]
		args := splitArgs(argStr)
		calls = append(calls, Call{Name: name, Args: args})
	}
	return calls, nil
}

// splitArgs splits a comma-separated argument list, honoring simple
// single- or double-quoted segments so an argument may itself contain a
// comma. Whitespace inside quotes is kept as written.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	var buf strings.Builder
	var quote byte
	quoted := false
	flush := func() {
		if quoted {
			args = append(args, buf.String())
		} else {
			args = append(args, strings.TrimSpace(buf.String()))
		}
		buf.Reset()
		quoted = false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				buf.WriteByte(c)
			}
		case c == '\'' || c == '"':
			if strings.TrimSpace(buf.String()) == "" {
				buf.Reset()
			}
			quote = c
			quoted = true
		case c == ',':
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return args
}

// RunPre executes a parsed preprocess chain in order, threading the
// output parameter map of each call into the input of the next.
func (r *Registry) RunPre(chain []Call, params map[string]string) (map[string]string, error) {
	cur := params
	for _, call := range chain {
		fn, ok := r.pre[call.Name]
		if !ok {
			return nil, fmt.Errorf("addon: unknown preprocess function %q", call.Name)
		}
		next, err := fn(cur, call.Args)
		if err != nil {
			return nil, fmt.Errorf("addon: preprocess %q: %w", call.Name, err)
		}
		cur = next
	}
	return cur, nil
}

// RunPost executes a parsed postprocess chain in order, threading the
// output body of each call into the input of the next.
func (r *Registry) RunPost(chain []Call, body []map[string]any) ([]map[string]any, error) {
	cur := body
	for _, call := range chain {
		fn, ok := r.post[call.Name]
		if !ok {
			return nil, fmt.Errorf("addon: unknown postprocess function %q", call.Name)
		}
		next, err := fn(cur, call.Args)
		if err != nil {
			return nil, fmt.Errorf("addon: postprocess %q: %w", call.Name, err)
		}
		cur = next
	}
	return cur, nil
}
