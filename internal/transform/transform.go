// Package transform implements RAMOSE's declarative, query-string-driven
// result transforms: exclude/require, filter, sort, format negotiation,
// and JSON array/dict restructuring. They are applied, in that strict
// order, to a typedtable.Table before serialization.
package transform

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/opencitations/ramose/internal/coerce"
	"github.com/opencitations/ramose/internal/typedtable"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Filter is one parsed filter=<field>:<op><value> query parameter.
type Filter struct {
	Field string
	// Op is one of '=', '<', '>' for a typed comparison, or 0 for a
	// case-insensitive regex search against the row's original string.
	Op    byte
	Value string
}

// JSONRestructure is one parsed json=array(...)/json=dict(...) rule.
type JSONRestructure struct {
	Kind string // "array" or "dict"
	Path string
	Sep  string
	Keys []string // only used for "dict"
}

// Params is the fully parsed set of declarative transform directives
// taken from a request's query string.
type Params struct {
	Exclude []string // exclude and require are synonyms
	Filters []Filter
	// Sort holds the raw, unparsed parameter values in the order the
	// query string presented them (e.g. "desc(date)"); ApplySort derives
	// field name/direction and application order from this slice,
	// preserving the original implementation's exact precedence rule.
	Sort   []string
	Format string // "csv" or "json", empty if unspecified
	JSON   []JSONRestructure
}

var filterRe = regexp.MustCompile(`^([^:]+):(.*)$`)
var sortOrderRe = regexp.MustCompile(`^(desc|asc)\(([^()]+)\)$`)
// jsonRuleRe captures the separator as a quoted group so it may itself
// contain commas, e.g. dict(", ",name,fname,gname) — an unquoted
// [^",]* group would stop at the separator's own internal comma.
var jsonRuleRe = regexp.MustCompile(`^(array|dict)\(\s*"([^"]*)"\s*,(.+)\)$`)

// ParseFilter parses one filter=<field>:<op><value> value.
func ParseFilter(raw string) (Filter, error) {
	m := filterRe.FindStringSubmatch(raw)
	if m == nil {
		return Filter{}, fmt.Errorf("transform: malformed filter %q", raw)
	}
	field, rhs := m[1], m[2]
	if rhs == "" {
		return Filter{Field: field}, nil
	}
	switch rhs[0] {
	case '=', '<', '>':
		return Filter{Field: field, Op: rhs[0], Value: strings.ToLower(rhs[1:])}, nil
	default:
		return Filter{Field: field, Value: strings.ToLower(rhs)}, nil
	}
}

// ParseJSONRule parses one json=array("sep",field) or
// json=dict("sep",field,k1,k2,...) query value.
func ParseJSONRule(raw string) (JSONRestructure, error) {
	m := jsonRuleRe.FindStringSubmatch(raw)
	if m == nil {
		return JSONRestructure{}, fmt.Errorf("transform: malformed json rule %q", raw)
	}
	kind, sep, rest := m[1], m[2], m[3]
	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 0 || parts[0] == "" {
		return JSONRestructure{}, fmt.Errorf("transform: json rule %q missing field path", raw)
	}
	r := JSONRestructure{Kind: kind, Sep: sep, Path: parts[0]}
	if kind == "dict" {
		r.Keys = parts[1:]
	}
	return r, nil
}

// ApplyExclude drops rows whose original string in any of the named
// fields is absent or empty.
func ApplyExclude(t *typedtable.Table, fields []string) {
	for _, field := range fields {
		idx := t.ColumnIndex(field)
		if idx < 0 {
			continue
		}
		kept := t.Rows[:0]
		for _, row := range t.Rows {
			if row[idx].Original != "" {
				kept = append(kept, row)
			}
		}
		t.Rows = kept
	}
}

// ApplyFilters keeps only rows compliant with every given filter.
// Unknown field names are silently skipped (the filter passes through
// unapplied), matching the original's tolerance for bad query input.
func ApplyFilters(t *typedtable.Table, filters []Filter) error {
	for _, f := range filters {
		idx := t.ColumnIndex(f.Field)
		if idx < 0 {
			continue
		}
		var kept [][]typedtable.Cell
		for _, row := range t.Rows {
			ok, err := matchesFilter(row[idx], f)
			if err != nil {
				return err
			}
			if ok {
				kept = append(kept, row)
			}
		}
		t.Rows = kept
	}
	return nil
}

func matchesFilter(cell typedtable.Cell, f Filter) (bool, error) {
	if f.Op == 0 {
		re, err := regexp.Compile("(?i)" + f.Value)
		if err != nil {
			return false, fmt.Errorf("transform: bad filter regex %q: %w", f.Value, err)
		}
		return re.MatchString(cell.Original), nil
	}

	rhs, err := coerce.Coerce(cell.Value.Kind, f.Value)
	if err != nil {
		return false, nil
	}
	cmp := coerce.Compare(cell.Value, rhs)
	switch f.Op {
	case '=':
		return cmp == 0, nil
	case '<':
		return cmp < 0, nil
	case '>':
		return cmp > 0, nil
	default:
		return false, fmt.Errorf("transform: unknown filter operator %q", f.Op)
	}
}

// ApplySort stably sorts rows by the fields named in raw sort
// parameter values. Matching the original implementation, when several
// sort parameters are given they are applied in reverse lexical order
// of their raw string value; because each application is a stable
// sort, the parameter whose raw value sorts lexically smallest is
// applied last and so ends up as the primary (outermost) key.
func ApplySort(t *typedtable.Table, raw []string) {
	if len(raw) == 0 {
		return
	}
	ordered := append([]string(nil), raw...)
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	for _, value := range ordered {
		fieldName := value
		desc := false
		if m := sortOrderRe.FindStringSubmatch(value); m != nil {
			desc = strings.EqualFold(m[1], "desc")
			fieldName = m[2]
		}
		idx := t.ColumnIndex(fieldName)
		if idx < 0 {
			continue
		}
		rows := t.Rows
		sort.SliceStable(rows, func(i, j int) bool {
			cmp := coerce.Compare(rows[i][idx].Value, rows[j][idx].Value)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
}

// NegotiateFormat decides the output content type. format is the
// query-string "format" value (may be empty); accept is the request's
// Accept header. format takes priority over accept per the original
// implementation; the result is always "csv" or "json".
func NegotiateFormat(format, accept string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "csv" || format == "json" {
		return format
	}
	if strings.Contains(accept, "text/csv") {
		return "csv"
	}
	return "json"
}

// ApplyJSONRestructure applies every json=array/dict rule, in order, to
// a slice of row objects (as produced by typedtable.Table.ToObjects).
// Each rule operates on every row independently.
func ApplyJSONRestructure(objects []map[string]any, rules []JSONRestructure) ([]map[string]any, error) {
	if len(rules) == 0 {
		return objects, nil
	}
	out := make([]map[string]any, len(objects))
	for i, obj := range objects {
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("transform: marshaling row: %w", err)
		}
		for _, rule := range rules {
			raw, err = applyOneRule(raw, rule)
			if err != nil {
				return nil, err
			}
		}
		var rebuilt map[string]any
		if err := json.Unmarshal(raw, &rebuilt); err != nil {
			return nil, fmt.Errorf("transform: unmarshaling restructured row: %w", err)
		}
		out[i] = rebuilt
	}
	return out, nil
}

func applyOneRule(raw []byte, rule JSONRestructure) ([]byte, error) {
	result := gjson.GetBytes(raw, rule.Path)
	if result.IsArray() {
		var elements []any
		var err error
		result.ForEach(func(_, v gjson.Result) bool {
			restructured, e := restructureScalar(v.String(), rule)
			if e != nil {
				err = e
				return false
			}
			elements = append(elements, restructured)
			return true
		})
		if err != nil {
			return nil, err
		}
		return sjson.SetBytes(raw, rule.Path, elements)
	}

	restructured, err := restructureScalar(result.String(), rule)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(raw, rule.Path, restructured)
}

func restructureScalar(value string, rule JSONRestructure) (any, error) {
	switch rule.Kind {
	case "array":
		if value == "" {
			return []string{}, nil
		}
		return strings.Split(value, rule.Sep), nil
	case "dict":
		if value == "" {
			return map[string]string{}, nil
		}
		parts := strings.SplitN(value, rule.Sep, len(rule.Keys))
		dict := make(map[string]string, len(rule.Keys))
		for i, k := range rule.Keys {
			if i < len(parts) {
				dict[k] = parts[i]
			} else {
				dict[k] = ""
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("transform: unknown json restructure kind %q", rule.Kind)
	}
}
