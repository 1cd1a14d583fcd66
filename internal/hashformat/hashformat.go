// Package hashformat parses Hash-Format documents (see
// https://github.com/opencitations/hf) into an ordered list of records.
//
// Grammar, line-oriented: a line matching "^#(\S+) (.+)$" opens or
// continues a field named by the first capture group. Any other line is
// appended verbatim, including its leading newline, to the most recently
// opened field of the current record. The first field name encountered in
// the document is the record separator: every later occurrence of that
// field name closes the current record (emitting it) and opens a new one.
package hashformat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Record is an ordered mapping from field name to field value. Go maps do
// not preserve insertion order, so order is tracked separately in Keys.
type Record struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value of field name and whether it was present.
func (r *Record) Get(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

func newRecord() *Record {
	return &Record{Values: make(map[string]string)}
}

func (r *Record) set(name, value string) {
	if _, exists := r.Values[name]; !exists {
		r.Keys = append(r.Keys, name)
	}
	r.Values[name] = value
}

func (r *Record) append(name, content string) {
	r.Values[name] += content
}

var fieldLineRe = regexp.MustCompile(`^#(\S+) (.+)$`)

// ParseFile reads and parses the Hash-Format document at path.
func ParseFile(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a Hash-Format document from r and returns its records in
// declaration order, each with fields in first-seen order.
func Parse(r io.Reader) ([]*Record, error) {
	var result []*Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var firstFieldName string
	var cur *Record
	var curFieldName string

	for scanner.Scan() {
		line := scanner.Text()

		if m := fieldLineRe.FindStringSubmatch(line); m != nil {
			fieldName, fieldContent := m[1], m[2]
			curFieldName = fieldName

			if firstFieldName == "" {
				firstFieldName = fieldName
			}

			if fieldName == firstFieldName {
				if cur != nil {
					result = append(result, cur)
				}
				cur = newRecord()
			}

			if cur != nil {
				cur.set(fieldName, fieldContent)
			}
		} else if cur != nil && len(cur.Keys) > 0 {
			cur.append(curFieldName, "\n"+line)
		}
		// Lines before any field has been opened, or once no record is
		// open, are silently ignored (malformed headers are treated as
		// continuation lines only when a field is already open).
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hashformat: %w", err)
	}

	if cur != nil && len(cur.Keys) > 0 {
		result = append(result, cur)
	}

	for _, rec := range result {
		for _, k := range rec.Keys {
			rec.Values[k] = strings.TrimRight(rec.Values[k], " \t\r\n")
		}
	}

	return result, nil
}
