package query

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// TimestampPrefix starts every record written by the timestamp task.
const TimestampPrefix = "timestamp: "

// Line is one newline-delimited record of the log.
type Line struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Filter wraps a compiled CEL program evaluated once per line. The zero
// Filter (or one built from an empty expression) matches everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// Compile parses and type-checks expr. Available variables:
//
//	line          string  record text without the trailing newline
//	index         int     zero-based record position
//	size          int     byte length of line
//	is_timestamp  bool    record was written by the timestamp task
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("line", cel.StringType),
		cel.Variable("index", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("is_timestamp", cel.BoolType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("query: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return Filter{}, fmt.Errorf("query: expression must be bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match evaluates the filter against one line. Evaluation errors do not
// match.
func (f Filter) Match(l Line) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"line":         l.Text,
		"index":        int64(l.Index),
		"size":         int64(len(l.Text)),
		"is_timestamp": strings.HasPrefix(l.Text, TimestampPrefix),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Apply splits data into lines and keeps those that match. A trailing
// partial record (no newline yet) is included as the last line.
func (f Filter) Apply(data []byte) []Line {
	lines := Split(data)
	out := lines[:0]
	for _, l := range lines {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Split breaks data into newline-delimited lines.
func Split(data []byte) []Line {
	var out []Line
	for i := 0; len(data) > 0; i++ {
		j := bytes.IndexByte(data, '\n')
		if j < 0 {
			out = append(out, Line{Index: i, Text: string(data)})
			break
		}
		out = append(out, Line{Index: i, Text: string(data[:j])})
		data = data[j+1:]
	}
	return out
}
