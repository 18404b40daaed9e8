package tool

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/leofalp/genchat/providers/ai"
)

// Catalog is a concurrency-safe set of tools keyed by function name. Names
// are case-sensitive, as they are for the model.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewCatalog returns a catalog holding tools.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{tools: make(map[string]Tool)}
	c.Add(tools...)
	return c
}

// Add registers tools, replacing any with the same name.
func (c *Catalog) Add(tools ...Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		c.tools[t.Declaration().Name] = t
	}
}

func (c *Catalog) Get(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tools[name]; !ok {
		return false
	}
	delete(c.tools, name)
	return true
}

// Names lists the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Declarations returns the request Tools entry for the catalog, or nil when
// it is empty.
func (c *Catalog) Declarations() []ai.Tool {
	names := c.Names()
	if len(names) == 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	declarations := make([]ai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		if t, ok := c.tools[name]; ok {
			declarations = append(declarations, t.Declaration())
		}
	}
	return []ai.Tool{{FunctionDeclarations: declarations}}
}

// Handle runs calls in order and returns one function response part per
// call. Unknown functions and failed calls are answered with
// {"error": "..."} so the model can recover; only ctx cancellation aborts.
func (c *Catalog) Handle(ctx context.Context, calls []ai.FunctionCall) ([]ai.Part, error) {
	parts := make([]ai.Part, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var response any
		t, ok := c.Get(call.Name)
		if !ok {
			response = errorResponse(fmt.Errorf("unknown function %q", call.Name))
		} else if output, err := t.Call(ctx, call); err != nil {
			response = errorResponse(err)
		} else {
			response = map[string]any{"output": output}
		}

		part, err := ai.NewFunctionResponsePart(call.Name, response)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func errorResponse(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
