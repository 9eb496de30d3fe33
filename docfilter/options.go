package docfilter

import (
	"go.uber.org/zap"

	"github.com/nonibytes/docfilter/docfilter/compile"
)

// DefaultFindLimit bounds Find when no limit is given.
const DefaultFindLimit = 100

// Options configures a Store
type Options struct {
	Logger *zap.Logger
	// Operators is the dialect filter documents passed to the store were
	// compiled with.
	Operators compile.Operators
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Logger:    zap.NewNop(),
		Operators: compile.MongoDialect,
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Operators.Name == "" {
		o.Operators = compile.MongoDialect
	}
	return o
}
