// Package facts defines the typed records of the line-oriented fact stream
// emitted by the native graph tool.
package facts

import (
	"fmt"

	"github.com/l3aro/go-program-graph/pkg/graph"
)

// Tag identifies the kind of a fact line.
type Tag string

const (
	TagAST     Tag = "AST"      // syntactic containment
	TagCFG     Tag = "CFG"      // control successor
	TagDFG     Tag = "DFG"      // direct data dependence
	TagGenKill Tag = "Gen/Kill" // variable definition at a statement
	TagRef     Tag = "Ref"      // variable read at a statement
)

// arity is the number of comma-separated fields, tag included.
var arity = map[Tag]int{
	TagAST:     5,
	TagCFG:     5,
	TagDFG:     4,
	TagGenKill: 4,
	TagRef:     5,
}

// Record is one parsed fact line.
type Record interface {
	Tag() Tag
}

// ASTFact records that Outer syntactically contains Inner.
type ASTFact struct {
	Outer      graph.Pointer
	OuterToken graph.Token
	Inner      graph.Pointer
	InnerToken graph.Token
}

// CFGFact records that From, owned by statement Stmt, is followed by To.
type CFGFact struct {
	Stmt  string
	From  graph.Pointer
	Label string
	To    graph.Pointer
}

// DFGFact records a direct data dependence from Source to Target.
type DFGFact struct {
	Source graph.Pointer
	Target graph.Pointer
}

// GenKillFact records that Stmt defines Var at site Def.
type GenKillFact struct {
	Stmt string
	Def  graph.Pointer
	Var  string
}

// RefFact records that Stmt reads Var at site Use.
type RefFact struct {
	Stmt string
	Use  graph.Pointer
	Var  string
}

func (ASTFact) Tag() Tag     { return TagAST }
func (CFGFact) Tag() Tag     { return TagCFG }
func (DFGFact) Tag() Tag     { return TagDFG }
func (GenKillFact) Tag() Tag { return TagGenKill }
func (RefFact) Tag() Tag     { return TagRef }

// ParseError reports a fact line whose fields do not match its tag.
type ParseError struct {
	Line   int    // 1-based line number in the stream
	Raw    string // the line as read
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed fact at line %d (%s): %q", e.Line, e.Reason, e.Raw)
}
