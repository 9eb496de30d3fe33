package postgres

import "github.com/nonibytes/docfilter/docfilter/storage"

var SQLTemplates = storage.SQL{
	GetMeta:          "SELECT value FROM meta WHERE key = $1",
	SetMeta:          "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",
	DataColumn:       "data_json::text",
	InsertDocument:   "INSERT INTO documents(collection, data_json) VALUES($1, $2::jsonb) RETURNING id",
	GetDocumentByID:  "SELECT data_json::text FROM documents WHERE collection = $1 AND id = $2",
	DeleteCollection: "DELETE FROM documents WHERE collection = $1",
	ListCollections:  "SELECT collection, COUNT(*) FROM documents GROUP BY collection ORDER BY collection",
}
