package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leofalp/genchat/core/attach"
	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/ai/gemini"
	"github.com/leofalp/genchat/providers/tool"
)

const (
	historyPreviewLen = 120
	maxToolRounds     = 5
)

// errQuit ends the loop without an error.
var errQuit = errors.New("quit")

// REPL reads user lines and sends them through a chat session. Lines that
// start with "/" are commands; see [REPL.help].
type REPL struct {
	session *chat.Session
	in      io.Reader
	out     printer
	model   string
	stream  bool
	tools   *tool.Catalog

	pending []ai.Part
	usage   ai.UsageMetadata
	cost    float64
}

// NewREPL builds a loop over session. model names the model for cost
// estimates and may be empty.
func NewREPL(session *chat.Session, in io.Reader, out io.Writer, model string, streaming bool) *REPL {
	return &REPL{
		session: session,
		in:      in,
		out:     printer{out: out},
		model:   model,
		stream:  streaming,
	}
}

// WithTools answers the model's function calls from catalog. The session
// must declare the same tools in its Params.
func (r *REPL) WithTools(catalog *tool.Catalog) *REPL {
	r.tools = catalog
	return r
}

// Run loops until /quit, end of input or ctx cancellation. Send failures are
// printed and the loop continues; the history is unchanged by them.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	r.out.info("session %s, type /help for commands", r.session.SessionID())
	for {
		r.out.prompt()
		if !scanner.Scan() {
			r.out.text("\n")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		if strings.HasPrefix(line, "/") {
			err = r.command(ctx, line)
		} else {
			err = r.send(ctx, line)
		}
		switch {
		case errors.Is(err, errQuit):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.out.error("%v", err)
		}
	}
}

func (r *REPL) command(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		r.help()
	case "/history":
		return r.history(ctx)
	case "/attach":
		return r.attach(ctx, arg)
	case "/reset":
		if err := r.session.Reset(ctx); err != nil {
			return err
		}
		r.pending = nil
		r.out.info("history cleared")
	case "/tokens":
		return r.tokens(ctx, arg)
	case "/usage":
		r.printUsage()
	case "/stream":
		r.stream = !r.stream
		r.out.info("streaming %s", onOff(r.stream))
	default:
		r.out.warn("unknown command %s, type /help", name)
	}
	return nil
}

func (r *REPL) help() {
	r.out.line("/history          print the conversation so far")
	r.out.line("/attach <path|url> add a file or web page to the next message")
	r.out.line("/reset            clear the conversation")
	r.out.line("/tokens [text]    count the tokens of the history plus text")
	r.out.line("/usage            print token usage and estimated cost")
	r.out.line("/stream           toggle streaming output")
	r.out.line("/quit             leave")
}

func (r *REPL) history(ctx context.Context) error {
	contents, err := r.session.History(ctx)
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		r.out.info("history is empty")
		return nil
	}
	for i, content := range contents {
		r.out.line("%3d %-5s %s", i+1, content.Role, describe(content))
	}
	return nil
}

func (r *REPL) attach(ctx context.Context, target string) error {
	if target == "" {
		return errors.New("usage: /attach <path|url>")
	}
	var (
		part ai.Part
		err  error
	)
	if attach.IsURL(target) {
		part, err = attach.URL(ctx, target)
	} else {
		part, err = attach.File(target)
	}
	if err != nil {
		return err
	}
	r.pending = append(r.pending, part)
	r.out.info("attached %s (%d pending)", target, len(r.pending))
	return nil
}

func (r *REPL) tokens(ctx context.Context, text string) error {
	var message []any
	if text != "" {
		message = append(message, text)
	}
	for _, part := range r.pending {
		message = append(message, part)
	}
	resp, err := r.session.CountTokens(ctx, message...)
	if err != nil {
		return err
	}
	r.out.info("%d tokens", resp.TotalTokens)
	return nil
}

func (r *REPL) printUsage() {
	r.out.info("prompt %d, output %d, thinking %d, cached %d, total %d tokens",
		r.usage.PromptTokenCount, r.usage.CandidatesTokenCount, r.usage.ThoughtsTokenCount,
		r.usage.CachedContentTokenCount, r.usage.TotalTokenCount)
	if _, ok := gemini.GetModelCost(r.model); ok {
		r.out.info("estimated cost $%.6f", r.cost)
	}
}

// send delivers text with the pending attachments. Function calls in the
// reply are answered from the tool catalog and the results sent back, up to
// maxToolRounds times.
func (r *REPL) send(ctx context.Context, text string) error {
	message := []any{text}
	for _, part := range r.pending {
		message = append(message, part)
	}

	for round := 0; ; round++ {
		resp, err := r.exchange(ctx, message)
		if err != nil {
			return err
		}
		r.pending = nil
		r.record(resp.UsageMetadata)

		calls, err := resp.FunctionCalls()
		if err != nil || len(calls) == 0 {
			return err
		}
		if r.tools == nil {
			for _, call := range calls {
				r.out.warn("function call %s(%s) is not handled by this client", call.Name, string(call.Args))
			}
			return nil
		}
		if round == maxToolRounds {
			r.out.warn("stopped after %d rounds of function calls", maxToolRounds)
			return nil
		}

		for _, call := range calls {
			r.out.info("→ %s(%s)", call.Name, string(call.Args))
		}
		parts, err := r.tools.Handle(ctx, calls)
		if err != nil {
			return err
		}
		message = make([]any, 0, len(parts))
		for _, part := range parts {
			message = append(message, part)
		}
	}
}

func (r *REPL) exchange(ctx context.Context, message []any) (*ai.GenerateContentResponse, error) {
	if r.stream {
		return r.sendStream(ctx, message)
	}
	return r.sendBuffered(ctx, message)
}

func (r *REPL) sendBuffered(ctx context.Context, message []any) (*ai.GenerateContentResponse, error) {
	result, err := r.session.SendMessage(ctx, message...)
	if err != nil {
		return nil, err
	}
	text, err := result.Response.Text()
	if err != nil {
		return nil, err
	}
	if text != "" {
		r.out.modelLabel()
		r.out.line("%s", text)
	}
	return result.Response, nil
}

func (r *REPL) sendStream(ctx context.Context, message []any) (*ai.GenerateContentResponse, error) {
	res, err := r.session.SendMessageStream(ctx, stream.Callbacks{}, message...)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	labelled := false
	for chunk, err := range res.Chunks() {
		if err != nil {
			if labelled {
				r.out.text("\n")
			}
			return nil, err
		}
		if text, textErr := chunk.Text(); textErr == nil && text != "" {
			if !labelled {
				r.out.modelLabel()
				labelled = true
			}
			r.out.text(text)
		}
	}
	if labelled {
		r.out.text("\n")
	}
	return res.Response()
}

func (r *REPL) record(usage *ai.UsageMetadata) {
	if usage == nil {
		return
	}
	r.usage.PromptTokenCount += usage.PromptTokenCount
	r.usage.CandidatesTokenCount += usage.CandidatesTokenCount
	r.usage.ThoughtsTokenCount += usage.ThoughtsTokenCount
	r.usage.CachedContentTokenCount += usage.CachedContentTokenCount
	r.usage.TotalTokenCount += usage.TotalTokenCount
	if cost, ok := gemini.EstimateCost(r.model, usage); ok {
		r.cost += cost
	}
}

// describe renders a turn on one line.
func describe(content ai.Content) string {
	var pieces []string
	for _, part := range content.Parts {
		switch {
		case part.Thought:
			pieces = append(pieces, "(thought)")
		case part.Text != "":
			pieces = append(pieces, strings.ReplaceAll(part.Text, "\n", " "))
		case part.InlineData != nil:
			pieces = append(pieces, fmt.Sprintf("[%s, %d bytes]", part.InlineData.MIMEType, len(part.InlineData.Data)))
		case part.FileData != nil:
			pieces = append(pieces, fmt.Sprintf("[%s]", part.FileData.FileURI))
		case part.FunctionCall != nil:
			pieces = append(pieces, fmt.Sprintf("%s(%s)", part.FunctionCall.Name, string(part.FunctionCall.Args)))
		case part.FunctionResponse != nil:
			pieces = append(pieces, fmt.Sprintf("%s -> %s", part.FunctionResponse.Name, string(part.FunctionResponse.Response)))
		}
	}
	return utils.TruncateString(strings.Join(pieces, " "), historyPreviewLen)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
