package sqlite

import "github.com/nonibytes/docfilter/docfilter/storage"

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS documents (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  collection TEXT NOT NULL,
  data_json  TEXT NOT NULL CHECK (json_valid(data_json))
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, id);
`

var SQLTemplates = storage.SQL{
	GetMeta:          "SELECT value FROM meta WHERE key = ?1",
	SetMeta:          "INSERT INTO meta(key,value) VALUES(?1,?2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
	DataColumn:       "data_json",
	InsertDocument:   "INSERT INTO documents(collection, data_json) VALUES(?1, ?2) RETURNING id",
	GetDocumentByID:  "SELECT data_json FROM documents WHERE collection = ?1 AND id = ?2",
	DeleteCollection: "DELETE FROM documents WHERE collection = ?1",
	ListCollections:  "SELECT collection, COUNT(*) FROM documents GROUP BY collection ORDER BY collection",
}
