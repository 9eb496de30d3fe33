// Package docfilter is a small JSON document store whose queries are
// compiled filter documents.
package docfilter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/planner"
	"github.com/nonibytes/docfilter/docfilter/storage"
	"github.com/nonibytes/docfilter/docfilter/storage/sqlbuilder"
)

// Store represents an open document store
type Store struct {
	adapter storage.Adapter
	db      *sql.DB
	opts    Options
	planner *planner.Planner
	log     *zap.Logger
}

// Record is a stored document
type Record struct {
	ID      int64
	DocJSON []byte
}

// Create creates the store tables if needed and opens the store
func Create(ctx context.Context, adapter storage.Adapter, opts Options) (*Store, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "connect to database", err)
	}
	if err := adapter.CreateStore(ctx, db); err != nil {
		db.Close()
		return nil, dferrors.Wrap(dferrors.ErrBackend, "create store", err)
	}
	return newStore(adapter, db, opts), nil
}

// Open opens an existing store
func Open(ctx context.Context, adapter storage.Adapter, opts Options) (*Store, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "connect to database", err)
	}
	if err := adapter.OpenStore(ctx, db); err != nil {
		db.Close()
		return nil, dferrors.Wrap(dferrors.ErrBackend, "open store", err)
	}
	return newStore(adapter, db, opts), nil
}

func newStore(adapter storage.Adapter, db *sql.DB, opts Options) *Store {
	opts = opts.withDefaults()
	log := opts.Logger.With(
		zap.String("backend", string(adapter.Backend())),
		zap.String("store", adapter.StoreID()),
	)
	return &Store{
		adapter: adapter,
		db:      db,
		opts:    opts,
		planner: planner.New(opts.Operators, adapter.JSON()),
		log:     log,
	}
}

// Close closes the store
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return dferrors.Wrap(dferrors.ErrBackend, "close database", err)
		}
	}
	return s.adapter.Close()
}

// Operators returns the dialect filters are expected in.
func (s *Store) Operators() compile.Operators { return s.opts.Operators }

func validateDocument(docJSON []byte) error {
	v, err := fastjson.ParseBytes(docJSON)
	if err != nil {
		return dferrors.Wrap(dferrors.ErrDecode, "invalid document JSON", err)
	}
	if v.Type() != fastjson.TypeObject {
		return dferrors.NewError(dferrors.ErrDecode, "document must be a JSON object")
	}
	return nil
}

// Insert stores one document and returns its id
func (s *Store) Insert(ctx context.Context, collection string, docJSON []byte) (int64, error) {
	ids, err := s.InsertMany(ctx, collection, [][]byte{docJSON})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertMany stores documents in one transaction
func (s *Store) InsertMany(ctx context.Context, collection string, docs [][]byte) ([]int64, error) {
	if collection == "" {
		return nil, dferrors.NewError(dferrors.ErrDecode, "collection name is required")
	}
	for i, doc := range docs {
		if err := validateDocument(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "begin transaction", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(docs))
	insert := s.adapter.SQL().InsertDocument
	for _, doc := range docs {
		var id int64
		if err := tx.QueryRowContext(ctx, insert, collection, string(doc)).Scan(&id); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrBackend, "insert document", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "commit", err)
	}
	s.log.Debug("inserted documents", zap.String("collection", collection), zap.Int("count", len(ids)))
	return ids, nil
}

// Get returns one document by id
func (s *Store) Get(ctx context.Context, collection string, id int64) (*Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.adapter.SQL().GetDocumentByID, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dferrors.NewError(dferrors.ErrNotFound, fmt.Sprintf("document %d not found in %s", id, collection))
	}
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "get document", err)
	}
	return &Record{ID: id, DocJSON: []byte(body)}, nil
}

// Drop deletes every document of a collection
func (s *Store) Drop(ctx context.Context, collection string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.adapter.SQL().DeleteCollection, collection)
	if err != nil {
		return 0, dferrors.Wrap(dferrors.ErrBackend, "drop collection", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Collections returns the document count per collection
func (s *Store) Collections(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.adapter.SQL().ListCollections)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "list collections", err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrBackend, "scan collection", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

// filtered builds "<select> FROM documents WHERE collection = ? AND <filter>".
func (s *Store) filtered(selectExpr, collection string, filter compile.Document, suffix string) (string, []any, error) {
	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	phColl := b.Arg(collection)
	where, err := s.planner.Where(b, filter)
	if err != nil {
		return "", nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM documents WHERE collection = %s AND %s%s", selectExpr, phColl, where, suffix)
	s.log.Debug("filter query", zap.String("sql", q), zap.Int("args", b.Len()))
	return q, b.Args(), nil
}

// Count returns the number of documents matching filter
func (s *Store) Count(ctx context.Context, collection string, filter compile.Document) (int64, error) {
	q, args, err := s.filtered("COUNT(*)", collection, filter, "")
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, dferrors.Wrap(dferrors.ErrBackend, "count documents", err)
	}
	return n, nil
}

// Find returns up to limit documents matching filter in insertion order
func (s *Store) Find(ctx context.Context, collection string, filter compile.Document, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	q, args, err := s.filtered("id, "+s.adapter.SQL().DataColumn, collection, filter, fmt.Sprintf(" ORDER BY id LIMIT %d", limit))
	if err != nil {
		return nil, err
	}
	return s.scanRecords(ctx, q, args)
}

func (s *Store) scanRecords(ctx context.Context, q string, args []any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "find documents", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var body string
		if err := rows.Scan(&rec.ID, &body); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrBackend, "scan document", err)
		}
		rec.DocJSON = []byte(body)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Values returns the value of field in every document matching filter.
// Missing fields and JSON null read as nil; nested objects and arrays are
// returned as their JSON text.
func (s *Store) Values(ctx context.Context, collection, field string, filter compile.Document) ([]any, error) {
	q, args, err := s.filtered(s.adapter.SQL().DataColumn, collection, filter, " ORDER BY id")
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrBackend, "select values", err)
	}
	defer rows.Close()

	path := strings.Split(field, ".")
	var p fastjson.Parser
	var out []any
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrBackend, "scan document", err)
		}
		doc, err := p.Parse(body)
		if err != nil {
			return nil, dferrors.Wrap(dferrors.ErrDecode, "stored document is not valid JSON", err)
		}
		out = append(out, scalar(doc.Get(path...)))
	}
	return out, rows.Err()
}

func scalar(v *fastjson.Value) any {
	if v == nil {
		return nil
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		raw := v.String()
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := v.Int64(); err == nil {
				return i
			}
		}
		return v.GetFloat64()
	default:
		return string(v.MarshalTo(nil))
	}
}
