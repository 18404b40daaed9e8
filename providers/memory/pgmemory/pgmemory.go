package pgmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/memory"
	"github.com/leofalp/genchat/providers/observability"
)

const (
	defaultTableName = "genchat_contents"
	backendName      = "pgmemory"
)

// Querier is the subset of pgx used by PgMemory. *pgxpool.Pool, *pgx.Conn
// and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxQuerier adds transactions. When the Querier also implements it, multi-turn
// appends and pops run inside a transaction.
type TxQuerier interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgMemory implements memory.Provider for one session.
type PgMemory struct {
	db        Querier
	sessionID string
	tableName string
	indexName string
}

var _ memory.Provider = (*PgMemory)(nil)

// Option configures a PgMemory.
type Option func(*PgMemory)

// WithTableName overrides the default table ("genchat_contents"). The name is
// quoted with pgx.Identifier before it is interpolated into SQL.
func WithTableName(name string) Option {
	return func(m *PgMemory) {
		m.tableName = pgx.Identifier{name}.Sanitize()
		m.indexName = pgx.Identifier{"idx_" + name + "_session_seq"}.Sanitize()
	}
}

// New binds a store to sessionID.
func New(db Querier, sessionID string, opts ...Option) *PgMemory {
	m := &PgMemory{
		db:        db,
		sessionID: sessionID,
		tableName: defaultTableName,
		indexName: "idx_" + defaultTableName + "_session_seq",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SessionID returns the session the store is bound to.
func (m *PgMemory) SessionID() string {
	return m.sessionID
}

// AppendContents inserts turns in order, inside one transaction when more
// than one turn is written and the Querier supports it.
func (m *PgMemory) AppendContents(ctx context.Context, contents ...ai.Content) error {
	if len(contents) == 0 {
		return nil
	}

	rows := make([][]byte, len(contents))
	for i, c := range contents {
		parts, err := json.Marshal(c.Parts)
		if err != nil {
			return fmt.Errorf("pgmemory: encode parts of turn %d: %w", i, err)
		}
		rows[i] = parts
	}

	query := fmt.Sprintf(`INSERT INTO %s (session_id, role, parts) VALUES ($1, $2, $3)`, m.tableName)
	insert := func(q Querier) error {
		for i, c := range contents {
			if _, err := q.Exec(ctx, query, m.sessionID, string(c.Role), rows[i]); err != nil {
				return fmt.Errorf("pgmemory: append: %w", err)
			}
		}
		return nil
	}

	var err error
	if txDB, ok := m.db.(TxQuerier); ok && len(contents) > 1 {
		err = pgx.BeginFunc(ctx, txDB, func(tx pgx.Tx) error { return insert(tx) })
	} else {
		err = insert(m.db)
	}
	if err != nil {
		slog.Error("pgmemory: failed to append contents", "session_id", m.sessionID, "error", err)
		return err
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		for _, c := range contents {
			span.AddEvent(observability.EventMemoryAppend,
				observability.String(observability.AttrMemoryBackend, backendName),
				observability.String(observability.AttrMemoryRole, string(c.Role)),
				observability.Int(observability.AttrMemoryParts, len(c.Parts)),
			)
		}
	}
	return nil
}

// AllContents returns the session's turns ordered by seq.
func (m *PgMemory) AllContents(ctx context.Context) ([]ai.Content, error) {
	query := fmt.Sprintf(`SELECT role, parts FROM %s WHERE session_id = $1 ORDER BY seq ASC`, m.tableName)

	rows, err := m.db.Query(ctx, query, m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: all contents: %w", err)
	}
	defer rows.Close()

	contents := []ai.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmemory: iterate rows: %w", err)
	}
	return contents, nil
}

// Count returns the number of turns stored for the session.
func (m *PgMemory) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE session_id = $1`, m.tableName)

	var count int
	if err := m.db.QueryRow(ctx, query, m.sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgmemory: count: %w", err)
	}
	return count, nil
}

// PopLastContent deletes and returns the newest turn with a single
// DELETE ... RETURNING, or returns nil when the session is empty.
func (m *PgMemory) PopLastContent(ctx context.Context) (*ai.Content, error) {
	query := fmt.Sprintf(`DELETE FROM %s
		WHERE id = (
			SELECT id FROM %s WHERE session_id = $1 ORDER BY seq DESC LIMIT 1
		)
		RETURNING role, parts`, m.tableName, m.tableName)

	c, err := scanContent(m.db.QueryRow(ctx, query, m.sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryPop,
			observability.String(observability.AttrMemoryBackend, backendName),
			observability.String(observability.AttrMemoryRole, string(c.Role)),
		)
	}
	return &c, nil
}

// ClearContents deletes every turn of the session.
func (m *PgMemory) ClearContents(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, m.tableName)
	if _, err := m.db.Exec(ctx, query, m.sessionID); err != nil {
		slog.Error("pgmemory: failed to clear contents", "session_id", m.sessionID, "error", err)
		return fmt.Errorf("pgmemory: clear: %w", err)
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear,
			observability.String(observability.AttrMemoryBackend, backendName))
	}
	return nil
}

// scanContent reads one (role, parts) row. pgx.ErrNoRows is returned
// unwrapped-compatible so callers can test for it.
func scanContent(row pgx.Row) (ai.Content, error) {
	var role string
	var parts []byte
	if err := row.Scan(&role, &parts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ai.Content{}, err
		}
		return ai.Content{}, fmt.Errorf("pgmemory: scan row: %w", err)
	}

	c := ai.Content{Role: ai.Role(role)}
	if err := json.Unmarshal(parts, &c.Parts); err != nil {
		return ai.Content{}, fmt.Errorf("pgmemory: decode parts: %w", err)
	}
	return c, nil
}
