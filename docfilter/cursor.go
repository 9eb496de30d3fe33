package docfilter

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/storage/sqlbuilder"
)

// Page is one slice of a paginated Find.
type Page struct {
	Records    []Record
	NextCursor string
	HasMore    bool
}

// cursorPosition is the keyset position after the last returned record,
// bound to the query it came from.
type cursorPosition struct {
	AfterID int64  `json:"after_id"`
	Hash    string `json:"hash"`
}

func hashQuery(collection string, filter compile.Document) (string, error) {
	fb, err := filter.MarshalJSON()
	if err != nil {
		return "", dferrors.Wrap(dferrors.ErrCursor, "filter json", err)
	}
	h := sha256.New()
	h.Write([]byte(collection))
	h.Write([]byte("\n"))
	h.Write(fb)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func encodeCursor(pos cursorPosition) (string, error) {
	b, err := json.Marshal(pos)
	if err != nil {
		return "", dferrors.Wrap(dferrors.ErrCursor, "cursor json", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(tok string) (cursorPosition, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return cursorPosition{}, dferrors.NewError(dferrors.ErrCursor, "base64 decode error")
	}
	var pos cursorPosition
	if err := json.Unmarshal(b, &pos); err != nil {
		return cursorPosition{}, dferrors.NewError(dferrors.ErrCursor, "cursor json parse error")
	}
	return pos, nil
}

// FindPage returns up to limit matching documents after the position in
// cursor. An empty cursor starts from the beginning. A cursor only resumes
// the collection and filter it was issued for.
func (s *Store) FindPage(ctx context.Context, collection string, filter compile.Document, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	hash, err := hashQuery(collection, filter)
	if err != nil {
		return nil, err
	}
	var after int64
	if cursor != "" {
		pos, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		if pos.Hash != hash {
			return nil, dferrors.NewError(dferrors.ErrCursor, "cursor does not match this query")
		}
		after = pos.AfterID
	}

	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	phColl := b.Arg(collection)
	phAfter := b.Arg(after)
	where, err := s.planner.Where(b, filter)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, %s FROM documents WHERE collection = %s AND id > %s AND %s ORDER BY id LIMIT %d",
		s.adapter.SQL().DataColumn, phColl, phAfter, where, limit+1)

	recs, err := s.scanRecords(ctx, q, b.Args())
	if err != nil {
		return nil, err
	}
	page := &Page{Records: recs}
	if len(recs) > limit {
		page.Records = recs[:limit]
		page.HasMore = true
		page.NextCursor, err = encodeCursor(cursorPosition{AfterID: recs[limit-1].ID, Hash: hash})
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}
