package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---- DoPostSync tests -------------------------------------------------------

// TestDoPostSync_Success verifies that a 200 response with valid JSON is
// unmarshaled into the output struct and the request body is JSON.
func TestDoPostSync_Success(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer server.Close()

	type response struct {
		Value int `json:"value"`
	}

	_, result, err := DoPostSync[response](context.Background(), server.Client(), server.URL, map[string]string{"q": "test"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result == nil || result.Value != 42 {
		t.Fatalf("expected Value=42, got %+v", result)
	}
	if received["q"] != "test" {
		t.Errorf("expected request body to be forwarded, got %v", received)
	}
}

// TestDoPostSync_Non2xxStatus verifies that a non-2xx status yields *APIError.
func TestDoPostSync_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad request")
	}))
	defer server.Close()

	_, _, err := DoPostSync[map[string]any](context.Background(), server.Client(), server.URL, map[string]string{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Retryable() {
		t.Error("expected 400 not to be retryable")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected error text to carry the status, got %q", err.Error())
	}
}

// TestDoPostSync_UnmarshalError verifies that invalid JSON is reported with a preview.
func TestDoPostSync_UnmarshalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	_, _, err := DoPostSync[map[string]any](context.Background(), server.Client(), server.URL, map[string]string{})
	if err == nil {
		t.Fatal("expected unmarshal error, got nil")
	}
	if !strings.Contains(err.Error(), "not json at all") {
		t.Errorf("expected response preview in error, got %q", err.Error())
	}
}

// TestDoPostSync_MarshalError verifies that an unencodable body fails before sending.
func TestDoPostSync_MarshalError(t *testing.T) {
	_, _, err := DoPostSync[map[string]any](context.Background(), nil, "http://127.0.0.1:1", map[string]any{"bad": make(chan int)})
	if err == nil || !strings.Contains(err.Error(), "marshaling") {
		t.Fatalf("expected marshaling error, got %v", err)
	}
}

// TestDoPostSync_CustomHeaders verifies that HeaderOptions reach the server.
func TestDoPostSync_CustomHeaders(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Get("x-goog-api-key")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[map[string]any](context.Background(), server.Client(), server.URL, map[string]string{},
		HeaderOption{Key: "x-goog-api-key", Value: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured != "secret" {
		t.Errorf("expected header %q, got %q", "secret", captured)
	}
}

type errCloser struct{ closed bool }

func (ec *errCloser) Close() error {
	ec.closed = true
	return errors.New("close failed")
}

// TestCloseWithLog_ErrorPath verifies that close errors are swallowed after logging.
func TestCloseWithLog_ErrorPath(t *testing.T) {
	closer := &errCloser{}
	CloseWithLog(closer)
	if !closer.closed {
		t.Error("expected Close to be called")
	}
	CloseWithLog(nil)
}
