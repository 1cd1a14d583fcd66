// Package example provides a small, registrable set of addon functions
// translated from the original ccc_addon/test_addon reference addons:
// simple string case changes, DOI list encoding for SPARQL VALUES
// clauses, duplicate-row collapsing, and percent-decoding of result
// fields.
package example

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/opencitations/ramose/internal/addon"
)

// Register wires every addon function in this package into reg under
// its original name.
func Register(reg *addon.Registry) {
	reg.Register("upper", Upper)
	reg.Register("lower", Lower)
	reg.Register("split_dois", SplitDois)

	reg.RegisterPost("distinct", Distinct)
	reg.RegisterPost("remove_duplicates", RemoveDuplicates)
	reg.RegisterPost("decode_doi", DecodeDoi)
}

// Upper uppercases the named parameter. args[0] names the parameter.
func Upper(params map[string]string, args []string) (map[string]string, error) {
	return mapParam(params, args, strings.ToUpper)
}

// Lower lowercases the named parameter. args[0] names the parameter.
func Lower(params map[string]string, args []string) (map[string]string, error) {
	return mapParam(params, args, strings.ToLower)
}

// SplitDois turns a "__"-delimited list of DOIs into a double-quoted,
// space-separated list suitable for splicing into a SPARQL VALUES or
// FILTER(?doi IN (...)) clause, e.g. "a__b" becomes `"a" "b"`.
func SplitDois(params map[string]string, args []string) (map[string]string, error) {
	return mapParam(params, args, func(s string) string {
		parts := strings.Split(s, "__")
		for i, p := range parts {
			parts[i] = `"` + p + `"`
		}
		return strings.Join(parts, " ")
	})
}

func mapParam(params map[string]string, args []string, fn func(string) string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("example: missing parameter name argument")
	}
	name := args[0]
	value, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("example: parameter %q not present", name)
	}

	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	out[name] = fn(value)
	return out, nil
}

// Distinct drops every row whose "doi" field repeats an earlier row's,
// keeping the first occurrence. args is unused.
func Distinct(body []map[string]any, args []string) ([]map[string]any, error) {
	seen := make(map[string]bool)
	out := make([]map[string]any, 0, len(body))
	for _, row := range body {
		doi := fmt.Sprint(row["doi"])
		if seen[doi] {
			continue
		}
		seen[doi] = true
		out = append(out, row)
	}
	return out, nil
}

// RemoveDuplicates collapses rows naming the same unordered pair of
// author fields (args[0], args[1]) into one row whose count field
// (args[2]) is the sum across every collapsed row.
func RemoveDuplicates(body []map[string]any, args []string) ([]map[string]any, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("remove_duplicates: expected 3 arguments (author1, author2, count), got %d", len(args))
	}
	field1, field2, countField := args[0], args[1], args[2]

	type pairKey [2]string
	totals := make(map[pairKey]float64)
	order := make([]pairKey, 0)

	for _, row := range body {
		a1 := fmt.Sprint(row[field1])
		a2 := fmt.Sprint(row[field2])
		count := toFloat(row[countField])

		key := pairKey{a1, a2}
		if a2 < a1 {
			key = pairKey{a2, a1}
		}
		if _, ok := totals[key]; !ok {
			order = append(order, key)
		}
		totals[key] += count
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i][0] != order[j][0] {
			return order[i][0] < order[j][0]
		}
		return order[i][1] < order[j][1]
	})

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		out = append(out, map[string]any{
			field1:     key[0],
			field2:     key[1],
			countField: totals[key],
		})
	}
	return out, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		fmt.Sscanf(n, "%g", &f)
		return f
	default:
		return 0
	}
}

// DecodeDoi percent-decodes every field named in args across every row.
func DecodeDoi(body []map[string]any, args []string) ([]map[string]any, error) {
	for _, row := range body {
		for _, field := range args {
			raw, ok := row[field]
			if !ok {
				continue
			}
			s := fmt.Sprint(raw)
			decoded, err := url.QueryUnescape(s)
			if err != nil {
				return nil, fmt.Errorf("decode_doi: field %q: %w", field, err)
			}
			row[field] = decoded
		}
	}
	return body, nil
}
