package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"

	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/tool"
	"github.com/leofalp/genchat/providers/tool/calculator"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// echoModel answers every request with "echo: " and the text of the last
// user turn, or fails with err when set.
type echoModel struct {
	mu       sync.Mutex
	err      error
	requests []*ai.GenerateContentRequest
}

func (m *echoModel) reply(req *ai.GenerateContentRequest) (*ai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	last := req.Contents[len(req.Contents)-1]
	return &ai.GenerateContentResponse{
		Candidates: []ai.Candidate{{
			Content:      &ai.Content{Role: ai.RoleModel, Parts: []ai.Part{ai.NewTextPart("echo: " + last.Parts[0].Text)}},
			FinishReason: ai.FinishReasonStop,
		}},
		UsageMetadata: &ai.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
	}, nil
}

func (m *echoModel) GenerateContent(_ context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
	resp, err := m.reply(req)
	if err != nil {
		return nil, err
	}
	return &ai.GenerateContentResult{Response: resp}, nil
}

func (m *echoModel) GenerateContentStream(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
	resp, err := m.reply(req)
	if err != nil {
		return nil, err
	}
	return stream.FromResponse(ctx, resp, cb), nil
}

func (m *echoModel) lastRequest() *ai.GenerateContentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func runREPL(t *testing.T, model chat.Model, streaming bool, input string) (string, *chat.Session) {
	t.Helper()
	session, err := chat.New(model, chat.Params{})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}
	var out bytes.Buffer
	if err := NewREPL(session, strings.NewReader(input), &out, "gemini-2.5-flash", streaming).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), session
}

func TestREPL_Conversation(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		t.Run(onOff(streaming), func(t *testing.T) {
			out, session := runREPL(t, &echoModel{}, streaming, "hello\n\nsecond\n/history\n/quit\nignored\n")

			if !strings.Contains(out, "model> echo: hello") || !strings.Contains(out, "model> echo: second") {
				t.Errorf("missing replies in output:\n%s", out)
			}
			if !strings.Contains(out, "  1 user  hello") || !strings.Contains(out, "  4 model echo: second") {
				t.Errorf("missing history listing in output:\n%s", out)
			}
			history, err := session.History(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(history) != 4 {
				t.Errorf("history length = %d, want 4", len(history))
			}
		})
	}
}

func TestREPL_FailedSendKeepsLooping(t *testing.T) {
	model := &echoModel{err: errors.New("boom")}
	out, session := runREPL(t, model, false, "hello\n/history\n")

	if !strings.Contains(out, "✗ boom") {
		t.Errorf("expected error line, got:\n%s", out)
	}
	if !strings.Contains(out, "history is empty") {
		t.Errorf("failed send must not touch history, got:\n%s", out)
	}
	if history, _ := session.History(context.Background()); len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
}

func TestREPL_AttachGoesWithNextMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("milk"), 0o600); err != nil {
		t.Fatal(err)
	}
	model := &echoModel{}
	out, _ := runREPL(t, model, false, "/attach "+path+"\nread this\n/attach\n/attach "+path+".missing\n")

	if !strings.Contains(out, "1 pending") {
		t.Errorf("expected pending notice, got:\n%s", out)
	}
	parts := model.lastRequest().Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "read this" || !strings.HasSuffix(parts[1].Text, "milk") {
		t.Errorf("user turn parts = %+v", parts)
	}
	if !strings.Contains(out, "usage: /attach") {
		t.Errorf("expected usage hint for bare /attach, got:\n%s", out)
	}
	if strings.Count(out, "✗") != 2 {
		t.Errorf("expected two errors (usage and missing file), got:\n%s", out)
	}
}

func TestREPL_Commands(t *testing.T) {
	out, session := runREPL(t, &echoModel{}, true, "hi\n/usage\n/reset\n/stream\n/help\n/bogus\n/tokens\n/exit\n")

	for _, want := range []string{
		"prompt 10, output 5, thinking 0, cached 0, total 15 tokens",
		"estimated cost $",
		"history cleared",
		"streaming off",
		"/attach <path|url>",
		"unknown command /bogus",
		"✗ " + chat.ErrCountUnsupported.Error(),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if history, _ := session.History(context.Background()); len(history) != 0 {
		t.Errorf("history after /reset = %d turns", len(history))
	}
}

// callingModel asks for the calculator until it sees a function response,
// then reports the result.
type callingModel struct {
	echoModel
	always bool
}

func (m *callingModel) GenerateContent(_ context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	last := req.Contents[len(req.Contents)-1].Parts[0]
	var part ai.Part
	if last.FunctionResponse != nil && !m.always {
		part = ai.NewTextPart("result " + string(last.FunctionResponse.Response))
	} else {
		part = ai.Part{FunctionCall: &ai.FunctionCall{Name: calculator.Name, Args: json.RawMessage(`{"a":6,"b":7,"op":"mul"}`)}}
	}
	return &ai.GenerateContentResult{Response: &ai.GenerateContentResponse{
		Candidates: []ai.Candidate{{Content: &ai.Content{Role: ai.RoleModel, Parts: []ai.Part{part}}, FinishReason: ai.FinishReasonStop}},
	}}, nil
}

func newCatalog(t *testing.T) *tool.Catalog {
	t.Helper()
	calc, err := calculator.New()
	if err != nil {
		t.Fatal(err)
	}
	return tool.NewCatalog(calc)
}

func TestREPL_AnswersFunctionCalls(t *testing.T) {
	model := &callingModel{}
	session, err := chat.New(model, chat.Params{})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	repl := NewREPL(session, strings.NewReader("what is 6*7?\n"), &out, "", false).WithTools(newCatalog(t))
	if err := repl.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "→ calculator(") || !strings.Contains(out.String(), `model> result {"output":{"result":42}}`) {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	history, _ := session.History(context.Background())
	if len(history) != 4 || history[2].Parts[0].FunctionResponse == nil {
		t.Errorf("history = %+v", history)
	}
}

func TestREPL_FunctionCallRoundsAreBounded(t *testing.T) {
	model := &callingModel{always: true}
	session, err := chat.New(model, chat.Params{})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := NewREPL(session, strings.NewReader("loop\n"), &out, "", false).WithTools(newCatalog(t)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(model.requests) != maxToolRounds+1 {
		t.Errorf("model called %d times, want %d", len(model.requests), maxToolRounds+1)
	}
	if !strings.Contains(out.String(), "stopped after") {
		t.Errorf("missing stop notice:\n%s", out.String())
	}
}

func TestREPL_UnhandledFunctionCall(t *testing.T) {
	out, _ := runREPL(t, &callingModel{}, false, "compute\n")
	if !strings.Contains(out, "is not handled by this client") {
		t.Errorf("missing warning:\n%s", out)
	}
}

func TestREPL_ContextCancelled(t *testing.T) {
	session, err := chat.New(&echoModel{}, chat.Params{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err = NewREPL(session, strings.NewReader("hello\n"), &out, "", false).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestDescribe(t *testing.T) {
	content := ai.Content{Role: ai.RoleModel, Parts: []ai.Part{
		{Text: "thinking...", Thought: true},
		ai.NewTextPart("line one\nline two"),
		ai.NewBlobPart("image/png", []byte{1, 2, 3}),
		{FunctionCall: &ai.FunctionCall{Name: "lookup", Args: []byte(`{"q":1}`)}},
	}}
	want := `(thought) line one line two [image/png, 3 bytes] lookup({"q":1})`
	if got := describe(content); got != want {
		t.Errorf("describe = %q, want %q", got, want)
	}
}
