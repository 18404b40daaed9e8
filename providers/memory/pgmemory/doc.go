// Package pgmemory stores chat turns in PostgreSQL through pgx/v5.
//
// A [PgMemory] is scoped to one session ID; many sessions share a table.
// Each row holds one turn: its role and its parts as JSONB in the same shape
// the generateContent API uses. Ordering comes from a BIGSERIAL column, so
// turns appended within the same microsecond keep their order.
//
// [PgMemory.EnsureSchema] creates the table for development; production
// deployments should run their own migrations.
package pgmemory
