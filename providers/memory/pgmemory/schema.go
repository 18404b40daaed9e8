package pgmemory

import (
	"context"
	"fmt"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    seq        BIGSERIAL NOT NULL,
    session_id TEXT NOT NULL,
    role       TEXT NOT NULL,
    parts      JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createSessionSeqIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s (session_id, seq)`

// EnsureSchema creates the table and its (session_id, seq) index if missing.
func (m *PgMemory) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, fmt.Sprintf(createTableSQL, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create table: %w", err)
	}
	if _, err := m.db.Exec(ctx, fmt.Sprintf(createSessionSeqIndexSQL, m.indexName, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create session_seq index: %w", err)
	}
	return nil
}
