package pgmemory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/leofalp/genchat/providers/ai"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func mustParts(t *testing.T, parts ...ai.Part) []byte {
	t.Helper()
	data, err := json.Marshal(parts)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestNew_Options(t *testing.T) {
	mock := newMock(t)

	mem := New(mock, "s1")
	if mem.tableName != defaultTableName || mem.SessionID() != "s1" {
		t.Fatalf("unexpected defaults: %+v", mem)
	}

	custom := New(mock, "s1", WithTableName("chat turns"))
	if custom.tableName != `"chat turns"` {
		t.Errorf("table name not sanitized: %q", custom.tableName)
	}
	if !strings.HasPrefix(custom.indexName, `"idx_chat turns`) {
		t.Errorf("index name not derived from table: %q", custom.indexName)
	}
}

// TestAppendContents_PairInTransaction verifies that a user/model pair is
// written atomically.
func TestAppendContents_PairInTransaction(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	user := ai.Content{Role: ai.RoleUser, Parts: []ai.Part{{Text: "hi"}}}
	model := ai.Content{Role: ai.RoleModel, Parts: []ai.Part{{Text: "hello"}}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO genchat_contents").
		WithArgs("s1", "user", mustParts(t, user.Parts...)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO genchat_contents").
		WithArgs("s1", "model", mustParts(t, model.Parts...)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	// pgx.BeginFunc always rolls back on exit; after Commit that is a no-op.
	mock.ExpectRollback()

	if err := mem.AppendContents(context.Background(), user, model); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendContents_RollbackOnFailure(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO genchat_contents").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO genchat_contents").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)
	// Explicit rollback on the failed insert, then the deferred one.
	mock.ExpectRollback()
	mock.ExpectRollback()

	err := mem.AppendContents(context.Background(),
		ai.Content{Role: ai.RoleUser, Parts: []ai.Part{{Text: "a"}}},
		ai.Content{Role: ai.RoleModel, Parts: []ai.Part{{Text: "b"}}},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendContents_SingleTurnWithoutTransaction(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")
	blob := ai.NewBlobPart("image/png", []byte{1, 2})

	mock.ExpectExec("INSERT INTO genchat_contents").
		WithArgs("s1", "user", mustParts(t, blob)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := mem.AppendContents(context.Background(), ai.Content{Role: ai.RoleUser, Parts: []ai.Part{blob}}); err != nil {
		t.Fatal(err)
	}
	if err := mem.AppendContents(context.Background()); err != nil {
		t.Fatalf("empty append should be a no-op: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllContents(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectQuery("SELECT role, parts FROM genchat_contents").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "parts"}).
			AddRow("user", []byte(`[{"text":"hi"}]`)).
			AddRow("model", []byte(`[{"text":"hel"},{"functionCall":{"name":"f","args":{"a":1}}}]`)))

	got, err := mem.AllContents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Role != ai.RoleUser || got[1].Parts[1].FunctionCall.Name != "f" {
		t.Fatalf("unexpected contents %+v", got)
	}
	if err := ai.ValidateHistory(got); err != nil {
		t.Errorf("decoded history invalid: %v", err)
	}
}

func TestAllContents_EmptyAndErrors(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectQuery("SELECT role, parts").WithArgs("s1").WillReturnRows(pgxmock.NewRows([]string{"role", "parts"}))
	got, err := mem.AllContents(context.Background())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty session: %#v, %v", got, err)
	}

	mock.ExpectQuery("SELECT role, parts").WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "parts"}).AddRow("user", []byte(`not json`)))
	if _, err := mem.AllContents(context.Background()); err == nil || !strings.Contains(err.Error(), "decode parts") {
		t.Errorf("expected decode error, got %v", err)
	}

	mock.ExpectQuery("SELECT role, parts").WithArgs("s1").WillReturnError(errors.New("conn reset"))
	if _, err := mem.AllContents(context.Background()); err == nil {
		t.Error("expected query error")
	}
}

func TestCount(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectQuery("SELECT COUNT").WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := mem.Count(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
}

func TestPopLastContent(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectQuery("DELETE FROM genchat_contents").WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "parts"}).AddRow("user", []byte(`[{"text":"dangling"}]`)))
	got, err := mem.PopLastContent(context.Background())
	if err != nil || got == nil || got.Parts[0].Text != "dangling" {
		t.Fatalf("PopLastContent() = %+v, %v", got, err)
	}

	mock.ExpectQuery("DELETE FROM genchat_contents").WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"role", "parts"}))
	got, err = mem.PopLastContent(context.Background())
	if err != nil || got != nil {
		t.Errorf("pop on empty session = %+v, %v", got, err)
	}
}

func TestClearContents(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectExec("DELETE FROM genchat_contents WHERE session_id").WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	if err := mem.ClearContents(context.Background()); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("DELETE FROM genchat_contents WHERE session_id").WithArgs("s1").
		WillReturnError(errors.New("locked"))
	if err := mem.ClearContents(context.Background()); err == nil {
		t.Error("expected clear error")
	}
}

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)
	mem := New(mock, "s1")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS genchat_contents").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_genchat_contents_session_seq").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := mem.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
