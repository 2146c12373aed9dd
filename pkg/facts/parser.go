package facts

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-program-graph/pkg/graph"
)

// voidAnnotation is emitted by the tool inside some casts and would otherwise
// split into bogus fields.
const voidAnnotation = "(void)"

// maxLineSize bounds a single fact line when reading from a stream.
const maxLineSize = 1 << 20

// Stream is the parsed form of a fact stream.
type Stream struct {
	Records []Record
	// Dropped holds lines whose tag is not recognized. They are ignored, not rejected.
	Dropped []string
}

// Parse reads a fact stream line by line.
func Parse(r io.Reader) (*Stream, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading facts: %w", err)
	}
	return ParseLines(lines)
}

// ParseLines parses already split lines. The first malformed line aborts
// parsing with a *ParseError; no partial stream is returned.
func ParseLines(lines []string) (*Stream, error) {
	s := &Stream{Records: make([]Record, 0, len(lines))}
	for i, raw := range lines {
		fields := Split(raw)
		if fields == nil {
			continue
		}
		tag := Tag(fields[0])
		want, known := arity[tag]
		if !known {
			s.Dropped = append(s.Dropped, raw)
			continue
		}
		if len(fields) != want {
			return nil, &ParseError{
				Line:   i + 1,
				Raw:    raw,
				Reason: fmt.Sprintf("%s expects %d fields, got %d", tag, want, len(fields)),
			}
		}
		s.Records = append(s.Records, toRecord(tag, fields))
	}
	return s, nil
}

// Split normalizes a raw fact line into its fields. It returns nil for blank lines.
func Split(raw string) []string {
	line := strings.ReplaceAll(raw, voidAnnotation, "")
	line = strings.TrimSpace(line)
	line = strings.NewReplacer("(", "", ")", "").Replace(line)
	if line == "" {
		return nil
	}
	return strings.Split(line, ",")
}

func toRecord(tag Tag, f []string) Record {
	switch tag {
	case TagAST:
		return ASTFact{
			Outer:      graph.Pointer(f[1]),
			OuterToken: graph.Token(f[2]),
			Inner:      graph.Pointer(f[3]),
			InnerToken: graph.Token(f[4]),
		}
	case TagCFG:
		return CFGFact{Stmt: f[1], From: graph.Pointer(f[2]), Label: f[3], To: graph.Pointer(f[4])}
	case TagDFG:
		return DFGFact{Source: graph.Pointer(f[1]), Target: graph.Pointer(f[3])}
	case TagGenKill:
		return GenKillFact{Stmt: f[1], Def: graph.Pointer(f[2]), Var: f[3]}
	default:
		return RefFact{Stmt: f[1], Use: graph.Pointer(f[3]), Var: f[4]}
	}
}
