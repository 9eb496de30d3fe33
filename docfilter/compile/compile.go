// Package compile turns filter expressions into store filter documents.
package compile

import (
	"sort"

	"github.com/nonibytes/docfilter/docfilter/cast"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/query"
)

// Compiler compiles negation-free expressions to Documents for one dialect.
// A Compiler holds no mutable state and may be shared between goroutines.
type Compiler struct {
	ops Operators
}

// New returns a Compiler emitting ops' symbols.
func New(ops Operators) (*Compiler, error) {
	if err := ops.Validate(); err != nil {
		return nil, err
	}
	return &Compiler{ops: ops}, nil
}

var defaultCompiler = &Compiler{ops: MongoDialect}

// Default returns the MongoDB dialect compiler.
func Default() *Compiler { return defaultCompiler }

// Operators returns the dialect the compiler emits.
func (c *Compiler) Operators() Operators { return c.ops }

// CompileFilter normalizes expr and compiles the result.
func CompileFilter(expr query.Node) (Document, error) {
	return defaultCompiler.CompileFilter(expr)
}

// CompileFilter normalizes expr and compiles the result.
func (c *Compiler) CompileFilter(expr query.Node) (Document, error) {
	nnf, err := query.Normalize(expr)
	if err != nil {
		return nil, err
	}
	return c.Compile(nnf)
}

// Compile compiles an expression already in negation normal form. A Not
// node anywhere in expr is a MalformedAst error.
func (c *Compiler) Compile(expr query.Node) (Document, error) {
	switch e := expr.(type) {
	case query.And:
		return c.compilePair(c.ops.And, e.Left, e.Right)
	case query.Or:
		return c.compilePair(c.ops.Or, e.Left, e.Right)
	case query.Not:
		return nil, dferrors.MalformedAST("NOT must be normalized away before compiling")
	case query.Compare:
		return c.compileCompare(e)
	case query.Membership:
		return c.compileMembership(e)
	case nil:
		return nil, dferrors.MalformedAST("nil expression")
	default:
		return nil, dferrors.MalformedAST("unknown expression type %T", expr)
	}
}

func (c *Compiler) compilePair(sym string, left, right query.Node) (Document, error) {
	if left == nil || right == nil {
		return nil, dferrors.MalformedAST("%s requires exactly two operands", sym)
	}
	l, err := c.Compile(left)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(right)
	if err != nil {
		return nil, err
	}
	return Document{sym: []Document{l, r}}, nil
}

func (c *Compiler) compileCompare(e query.Compare) (Document, error) {
	sym, ok := c.ops.Comparison(e.Op)
	if !ok {
		return nil, dferrors.UnknownOperator(e.Op.String())
	}
	val, err := cast.Cast(e.Value, e.Field.Type)
	if err != nil {
		return nil, annotate(err, e.Field.Identifier)
	}
	return Document{e.Field.Identifier: Document{sym: val}}, nil
}

func (c *Compiler) compileMembership(e query.Membership) (Document, error) {
	sym, ok := c.ops.Membership(e.Op)
	if !ok {
		return nil, dferrors.UnknownOperator(e.Op.String())
	}
	if !e.Field.Type.Valid() {
		return nil, annotate(dferrors.UnknownTypeTag(string(e.Field.Type)), e.Field.Identifier)
	}
	vals := make([]any, 0, len(e.Values))
	for _, v := range e.Values {
		if v.IsNullSentinel() {
			v = query.Null()
		}
		var out any
		switch {
		case e.Field.Type == query.TypeObjectID:
			oid, err := cast.ObjectID(v)
			if err != nil {
				return nil, annotate(err, e.Field.Identifier)
			}
			out = oid
		case e.Field.Type == query.TypeBoolean && !v.IsNull():
			out = cast.Boolean(v)
		default:
			out = v.Interface()
		}
		vals = append(vals, out)
	}
	return Document{e.Field.Identifier: Document{sym: vals}}, nil
}

func annotate(err error, field string) error {
	if e, ok := err.(*dferrors.Error); ok && e.Field == "" {
		return e.WithField(field)
	}
	return err
}

func sortedKeys(d Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
