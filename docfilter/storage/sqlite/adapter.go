package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nonibytes/docfilter/docfilter/storage"
	"github.com/nonibytes/docfilter/docfilter/storage/sqlbuilder"
)

const (
	// DriverModernc is the pure-Go driver and the default.
	DriverModernc = "sqlite"
	// DriverCGO is github.com/mattn/go-sqlite3, available in cgo builds.
	DriverCGO = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestionNumbered
}

func (a *Adapter) StoreID() string {
	return a.Path
}

// dsn appends busy-timeout and foreign-key options in the syntax of the
// selected driver.
func (a *Adapter) dsn() string {
	var opts string
	if a.DriverName == DriverCGO {
		opts = "_busy_timeout=5000&_foreign_keys=on"
	} else {
		opts = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + opts
	}
	return a.Path + "?" + opts
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) JSON() storage.JSONPaths {
	return JSONPaths{}
}

func (a *Adapter) CreateStore(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	sqlt := a.SQL()
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MagicKey, storage.MagicValue); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.VersionKey, storage.VersionValue); err != nil {
		return err
	}
	return nil
}

func (a *Adapter) OpenStore(ctx context.Context, db *sql.DB) error {
	var magic string
	if err := db.QueryRowContext(ctx, a.SQL().GetMeta, storage.MagicKey).Scan(&magic); err != nil {
		return err
	}
	if magic != storage.MagicValue {
		return fmt.Errorf("not a docfilter db")
	}
	return nil
}

// JSONPaths addresses fields with json_extract / json_type.
type JSONPaths struct{}

// jsonPath renders a sqlite JSON path with every label quoted, so
// identifiers containing spaces or dashes are addressed literally.
func jsonPath(path []string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, seg := range path {
		sb.WriteString(`."`)
		sb.WriteString(seg)
		sb.WriteString(`"`)
	}
	return sb.String()
}

func (JSONPaths) Extract(b storage.Builder, path []string) string {
	return fmt.Sprintf("json_extract(data_json, %s)", b.Arg(jsonPath(path)))
}

func (JSONPaths) IsKind(b storage.Builder, path []string, kind storage.JSONKind) string {
	expr := fmt.Sprintf("json_type(data_json, %s)", b.Arg(jsonPath(path)))
	switch kind {
	case storage.KindNumber:
		return expr + " IN ('integer','real')"
	case storage.KindString:
		return expr + " = 'text'"
	case storage.KindBool:
		return expr + " IN ('true','false')"
	default:
		return expr + " = 'null'"
	}
}

func (JSONPaths) Missing(b storage.Builder, path []string) string {
	return fmt.Sprintf("json_type(data_json, %s) IS NULL", b.Arg(jsonPath(path)))
}

// Bind passes scalars natively; json_extract reports booleans as 1 and 0.
func (JSONPaths) Bind(b storage.Builder, v any, kind storage.JSONKind) string {
	if bv, ok := v.(bool); ok {
		if bv {
			return b.Arg(int64(1))
		}
		return b.Arg(int64(0))
	}
	return b.Arg(v)
}
