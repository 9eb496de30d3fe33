package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/docfilter/docfilter/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	StoreID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	CreateStore(ctx context.Context, db *sql.DB) error
	OpenStore(ctx context.Context, db *sql.DB) error

	SQL() SQL
	JSON() JSONPaths
}

// JSONKind classifies a JSON scalar for type-bracketed comparisons: a
// filter operand only ever matches document values of the same kind.
type JSONKind string

const (
	KindNumber JSONKind = "number"
	KindString JSONKind = "string"
	KindBool   JSONKind = "boolean"
	KindNull   JSONKind = "null"
)

// JSONPaths renders access to fields of the stored JSON documents. path is
// a field identifier split on dots.
type JSONPaths interface {
	// Extract yields the field's value in a form comparable with Bind.
	Extract(b Builder, path []string) string
	// IsKind is true when the field holds a value of the given kind, and
	// NULL or false otherwise (including when the field is missing).
	IsKind(b Builder, path []string, kind JSONKind) string
	// Missing is true when the document has no such field.
	Missing(b Builder, path []string) string
	// Bind allocates a placeholder for a bool, int64, float64 or string.
	Bind(b Builder, v any, kind JSONKind) string
}

// SQL holds prepared SQL templates for common operations
type SQL struct {
	GetMeta string
	SetMeta string

	// DataColumn selects the document body as text
	DataColumn string

	InsertDocument   string
	GetDocumentByID  string
	DeleteCollection string
	ListCollections  string
}

// Builder interface for placeholder management
type Builder interface {
	Arg(v any) string
	Args() []any
	Len() int
}

// Magic identifies a database created by this package.
const (
	MagicKey     = "docfilter_magic"
	MagicValue   = "docfilter"
	VersionKey   = "docfilter_version"
	VersionValue = "1"
)
