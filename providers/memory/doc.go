// Package memory defines the Provider interface that stores a chat session's
// turns. Every method takes a context and returns an error so that
// database-backed stores can surface failures.
//
// Implementations live in [github.com/leofalp/genchat/providers/memory/inmemory]
// and [github.com/leofalp/genchat/providers/memory/pgmemory].
package memory
