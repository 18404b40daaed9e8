package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/memory"
	"github.com/leofalp/genchat/providers/observability"
)

const backendName = "inmemory"

// ArrayMemory is a concurrency-safe in-process turn store.
type ArrayMemory struct {
	mu       sync.RWMutex
	contents []ai.Content
}

var _ memory.Provider = (*ArrayMemory)(nil)

// New returns an empty store.
func New() *ArrayMemory {
	return &ArrayMemory{contents: []ai.Content{}}
}

// AppendContents stores copies of contents. When a span is present in ctx an
// append event is recorded per turn.
func (m *ArrayMemory) AppendContents(ctx context.Context, contents ...ai.Content) error {
	if len(contents) == 0 {
		return nil
	}
	copies := ai.CloneContents(contents)

	m.mu.Lock()
	m.contents = append(m.contents, copies...)
	total := len(m.contents)
	m.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		for _, c := range contents {
			span.AddEvent(observability.EventMemoryAppend,
				observability.String(observability.AttrMemoryBackend, backendName),
				observability.String(observability.AttrMemoryRole, string(c.Role)),
				observability.Int(observability.AttrMemoryParts, len(c.Parts)),
			)
		}
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalContents, total))
	}
	return nil
}

// AllContents returns a deep copy of the history. The error is always nil.
func (m *ArrayMemory) AllContents(_ context.Context) ([]ai.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := ai.CloneContents(m.contents)
	if out == nil {
		out = []ai.Content{}
	}
	return out, nil
}

// Count returns the number of stored turns. The error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contents), nil
}

// PopLastContent removes and returns the newest turn, or nil when empty.
func (m *ArrayMemory) PopLastContent(ctx context.Context) (*ai.Content, error) {
	m.mu.Lock()
	if len(m.contents) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	idx := len(m.contents) - 1
	last := m.contents[idx]
	m.contents[idx] = ai.Content{}
	m.contents = m.contents[:idx]
	m.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryPop,
			observability.String(observability.AttrMemoryBackend, backendName),
			observability.String(observability.AttrMemoryRole, string(last.Role)),
		)
	}
	return &last, nil
}

// ClearContents drops every turn, keeping the slice capacity.
func (m *ArrayMemory) ClearContents(ctx context.Context) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear,
			observability.String(observability.AttrMemoryBackend, backendName))
	}

	m.mu.Lock()
	clear(m.contents)
	m.contents = m.contents[:0]
	m.mu.Unlock()
	return nil
}
