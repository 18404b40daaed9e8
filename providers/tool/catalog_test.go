package tool

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leofalp/genchat/providers/ai"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo"`
}

type echoOutput struct {
	Echo string `json:"echo"`
}

func newEcho(t *testing.T, name string) *Func[echoInput, echoOutput] {
	t.Helper()
	echo, err := New(name, func(_ context.Context, in echoInput) (echoOutput, error) {
		if in.Text == "fail" {
			return echoOutput{}, errors.New("asked to fail")
		}
		return echoOutput{Echo: in.Text}, nil
	}, WithDescription("echoes text"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return echo
}

func TestNew_Declaration(t *testing.T) {
	decl := newEcho(t, "echo").Declaration()
	if decl.Name != "echo" || decl.Description != "echoes text" {
		t.Errorf("declaration = %+v", decl)
	}
	if decl.Parameters == nil || decl.Parameters.Properties["text"] == nil {
		t.Fatalf("parameters not inferred: %+v", decl.Parameters)
	}
	if !reflect.DeepEqual(decl.Parameters.Required, []string{"text"}) {
		t.Errorf("required = %v", decl.Parameters.Required)
	}
}

func TestFunc_Call(t *testing.T) {
	echo := newEcho(t, "echo")

	out, err := echo.Call(context.Background(), ai.FunctionCall{Name: "echo", Args: json.RawMessage(`{"text": "hi"}`)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != (echoOutput{Echo: "hi"}) {
		t.Errorf("output = %#v", out)
	}

	if _, err := echo.Call(context.Background(), ai.FunctionCall{Name: "echo", Args: json.RawMessage(`{"text": "fail"}`)}); err == nil || !strings.Contains(err.Error(), "echo: asked to fail") {
		t.Errorf("failing call: got %v", err)
	}
	if _, err := echo.Call(context.Background(), ai.FunctionCall{Name: "echo", Args: json.RawMessage(`[1, 2`)}); err == nil {
		t.Error("undecodable arguments: expected error")
	}
}

func TestCatalog_Registry(t *testing.T) {
	c := NewCatalog(newEcho(t, "b"), newEcho(t, "a"))

	if c.Size() != 2 || !reflect.DeepEqual(c.Names(), []string{"a", "b"}) {
		t.Errorf("names = %v", c.Names())
	}
	if _, ok := c.Get("A"); ok {
		t.Error("names must be case-sensitive")
	}
	decls := c.Declarations()
	if len(decls) != 1 || len(decls[0].FunctionDeclarations) != 2 || decls[0].FunctionDeclarations[0].Name != "a" {
		t.Errorf("declarations = %+v", decls)
	}
	if !c.Remove("a") || c.Remove("a") {
		t.Error("Remove should report presence once")
	}
	if NewCatalog().Declarations() != nil {
		t.Error("empty catalog should declare nothing")
	}
}

func TestCatalog_Handle(t *testing.T) {
	c := NewCatalog(newEcho(t, "echo"))
	calls := []ai.FunctionCall{
		{Name: "echo", Args: json.RawMessage(`{"text": "one"}`)},
		{Name: "missing"},
		{Name: "echo", Args: json.RawMessage(`{"text": "fail"}`)},
	}

	parts, err := c.Handle(context.Background(), calls)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}

	want := []string{
		`{"output":{"echo":"one"}}`,
		`{"error":"unknown function \"missing\""}`,
		`{"error":"echo: asked to fail"}`,
	}
	for i, part := range parts {
		if part.FunctionResponse == nil || part.FunctionResponse.Name != calls[i].Name {
			t.Fatalf("part %d = %+v", i, part)
		}
		if got := string(part.FunctionResponse.Response); got != want[i] {
			t.Errorf("part %d response = %s, want %s", i, got, want[i])
		}
	}

	if _, err := ai.NewUserContent(parts); err != nil {
		t.Errorf("responses should form a valid user turn: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Handle(ctx, calls); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Handle = %v", err)
	}
}
