package postgres

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS documents (
  id         BIGSERIAL PRIMARY KEY,
  collection TEXT  NOT NULL,
  data_json  JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, id);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data_json jsonb_path_ops);
`
