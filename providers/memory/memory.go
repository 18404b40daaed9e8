package memory

import (
	"context"

	"github.com/leofalp/genchat/providers/ai"
)

// Provider is an ordered, append-only turn store with a single-step undo.
// Stores keep their own copies: mutating a value passed to AppendContents or
// returned by AllContents never reaches the stored history.
type Provider interface {
	// AppendContents appends turns in order. Either all of them are stored
	// or none are.
	AppendContents(ctx context.Context, contents ...ai.Content) error
	// AllContents returns every turn, oldest first.
	AllContents(ctx context.Context) ([]ai.Content, error)
	Count(ctx context.Context) (int, error)
	// PopLastContent removes and returns the newest turn, or nil when empty.
	PopLastContent(ctx context.Context) (*ai.Content, error)
	ClearContents(ctx context.Context) error
}
