package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// CompactHandler writes one line per record:
//
//	2025-11-03 10:40:35  INFO message → {"key":"value"}
//
// Attributes are flattened (groups become dotted prefixes) and JSON-encoded
// with sorted keys.
type CompactHandler struct {
	mu     *sync.Mutex
	output io.Writer
	level  slog.Leveler
	colors bool
	attrs  []slog.Attr
	prefix string
}

// NewCompactHandler returns a handler writing to output at or above level.
// When colors is set the level tag is colorized.
func NewCompactHandler(output io.Writer, level slog.Leveler, colors bool) *CompactHandler {
	if output == nil {
		output = os.Stderr
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &CompactHandler{
		mu:     &sync.Mutex{},
		output: output,
		level:  level,
		colors: colors,
	}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		flatten(fields, "", attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		flatten(fields, h.prefix, attr)
		return true
	})

	var sb strings.Builder
	if !r.Time.IsZero() {
		sb.WriteString(r.Time.Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	sb.WriteString(h.levelTag(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	if len(fields) > 0 {
		encoded, err := json.Marshal(fields)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", err.Error()))
		}
		sb.WriteString(" → ")
		sb.Write(encoded)
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, sb.String())
	return err
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *CompactHandler) levelTag(level slog.Level) string {
	tag := fmt.Sprintf("%5s", LevelString(level))
	if !h.colors {
		return tag
	}
	c := color.New(levelColor(level))
	c.EnableColor()
	return c.Sprint(tag)
}

func flatten(fields map[string]any, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = prefix + attr.Key + "."
		}
		for _, member := range value.Group() {
			flatten(fields, groupPrefix, member)
		}
		return
	}
	if attr.Key == "" {
		return
	}
	switch value.Kind() {
	case slog.KindDuration:
		fields[prefix+attr.Key] = value.Duration().String()
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			fields[prefix+attr.Key] = err.Error()
			return
		}
		fields[prefix+attr.Key] = value.Any()
	default:
		fields[prefix+attr.Key] = value.Any()
	}
}

func levelColor(level slog.Level) color.Attribute {
	switch {
	case level < slog.LevelDebug:
		return color.FgHiBlack
	case level < slog.LevelInfo:
		return color.FgBlue
	case level < slog.LevelWarn:
		return color.FgGreen
	case level < slog.LevelError:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
