package binding

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	exprLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'[^']*'`},
		{Name: "Int", Pattern: `\d+`},
		{Name: "TextFn", Pattern: `text\(\s*\)`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.\-]*`},
		{Name: "Symbol", Pattern: `\.\.|//|[/\[\]()@=*.]`},
	})

	exprParser = participle.MustBuild[Expr](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(3),
	)
)

// Expr is the root AST node of a binding expression.
type Expr struct {
	StringFn *Path `parser:"  'string' '(' @@ ')'"`
	Path     *Path `parser:"| @@"`
}

// Path is a location path, either anchored at the document root or relative
// to the context node. Both branches always consume at least one token.
type Path struct {
	Abs *AbsPath `parser:"  @@"`
	Rel *RelPath `parser:"| @@"`
}

// AbsPath is a root anchor followed by optional steps; "/" alone selects the root.
type AbsPath struct {
	Root string `parser:"@( '//' | '/' )"`
	Head *Step  `parser:"@@?"`
	Tail []*Hop `parser:"@@*"`
}

// RelPath is at least one step evaluated against the context node.
type RelPath struct {
	Head *Step  `parser:"@@"`
	Tail []*Hop `parser:"@@*"`
}

// Hop is a separator followed by one step.
type Hop struct {
	Sep  string `parser:"@( '//' | '/' )"`
	Step *Step  `parser:"@@"`
}

// Step selects nodes relative to the current node set.
type Step struct {
	Sel        *Selector    `parser:"@@"`
	Predicates []*Predicate `parser:"@@*"`
}

// Selector is the node test of a step.
type Selector struct {
	Parent bool   `parser:"  @'..'"`
	Self   bool   `parser:"| @'.'"`
	Text   bool   `parser:"| @TextFn"`
	Attr   string `parser:"| '@' @( Ident | '*' )"`
	Name   string `parser:"| @( Ident | '*' )"`
}

// Predicate filters the nodes selected by a step: [n], [Name], [@attr], [Name='v'], [@attr='v'].
type Predicate struct {
	Index *int  `parser:"  '[' @Int ']'"`
	Test  *Test `parser:"| '[' @@ ']'"`
}

// Test checks a child element or attribute, optionally against a literal.
type Test struct {
	Attr  bool    `parser:"@'@'?"`
	Name  string  `parser:"@Ident"`
	Value *Quoted `parser:"( '=' @String )?"`
}

// Quoted unquotes single- or double-quoted strings on capture.
type Quoted string

// Capture implements participle.Capture.
func (q *Quoted) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	raw := values[0]
	if strings.HasPrefix(raw, "'") {
		*q = Quoted(strings.TrimSuffix(strings.TrimPrefix(raw, "'"), "'"))
		return nil
	}
	val, err := strconv.Unquote(raw)
	if err != nil {
		return err
	}
	*q = Quoted(val)
	return nil
}

// Absolute reports whether the path ignores the context node.
func (p *Path) Absolute() bool {
	return p != nil && p.Abs != nil
}

// parts flattens either branch into root anchor, first step and remaining hops.
func (p *Path) parts() (root string, head *Step, tail []*Hop) {
	switch {
	case p == nil:
		return "", nil, nil
	case p.Abs != nil:
		return p.Abs.Root, p.Abs.Head, p.Abs.Tail
	case p.Rel != nil:
		return "", p.Rel.Head, p.Rel.Tail
	}
	return "", nil, nil
}

// Parse parses a binding expression. Grammar failures, including any panic
// raised inside the parser, are returned as errors.
func Parse(expr string) (e *Expr, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("invalid expression %q: %v", expr, r)
		}
	}()
	return exprParser.ParseString("", expr)
}

// exprCache memoises parsed expressions; ASTs are read-only after parsing.
type exprCache struct {
	mu    sync.RWMutex
	exprs map[string]*Expr
}

func (c *exprCache) get(expr string) (*Expr, bool) {
	c.mu.RLock()
	e, ok := c.exprs[expr]
	c.mu.RUnlock()
	if ok {
		return e, e != nil
	}
	parsed, err := Parse(expr)
	if err != nil {
		parsed = nil
	}
	c.mu.Lock()
	if c.exprs == nil {
		c.exprs = make(map[string]*Expr)
	}
	c.exprs[expr] = parsed
	c.mu.Unlock()
	return parsed, parsed != nil
}
