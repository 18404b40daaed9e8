package observability

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestAttributeConstructors(t *testing.T) {
	tests := []struct {
		name      string
		attr      Attribute
		wantKey   string
		wantValue any
	}{
		{"string", String(AttrLLMModel, "gemini-2.0-flash"), AttrLLMModel, "gemini-2.0-flash"},
		{"int", Int(AttrChatHistoryLength, 4), AttrChatHistoryLength, 4},
		{"int64", Int64(AttrLLMTokensTotal, 1<<40), AttrLLMTokensTotal, int64(1 << 40)},
		{"float64", Float64("ratio", 0.5), "ratio", 0.5},
		{"bool", Bool(AttrLLMStreaming, true), AttrLLMStreaming, true},
		{"duration", Duration(AttrHTTPDuration, 2*time.Second), AttrHTTPDuration, 2 * time.Second},
		{"error", Error(errors.New("boom")), AttrError, "boom"},
		{"nil error", Error(nil), AttrError, ""},
		{"string slice", StringSlice("roles", []string{"user", "model"}), "roles", []string{"user", "model"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if !reflect.DeepEqual(tt.attr.Value, tt.wantValue) {
				t.Errorf("value = %#v, want %#v", tt.attr.Value, tt.wantValue)
			}
		})
	}
}

func TestStatusCode_Ordering(t *testing.T) {
	if StatusUnset != 0 || StatusOK != 1 || StatusError != 2 {
		t.Errorf("unexpected status codes: unset=%d ok=%d error=%d", StatusUnset, StatusOK, StatusError)
	}
}

func BenchmarkAttribute_String(b *testing.B) {
	for b.Loop() {
		_ = String(AttrChatSessionID, "abc")
	}
}
