// Package cli implements the genchat command: an interactive chat with a
// Gemini model whose history lives in memory or in PostgreSQL.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/genchat/core/config"
	"github.com/leofalp/genchat/providers/observability/slogobs"
)

const version = "0.1.0"

type flags struct {
	envFile   string
	model     string
	session   string
	system    string
	logLevel  string
	logFormat string
	noStream  bool
	tools     bool
}

// NewRootCommand returns the genchat command reading from in and writing the
// conversation to out and diagnostics to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:     "genchat",
		Short:   "Chat with a Gemini model from the terminal",
		Version: version,
		Long: `genchat opens an interactive multi-turn conversation with a Gemini model.

Settings come from the environment (and an optional .env file):
GEMINI_API_KEY, GEMINI_API_BASE_URL, GEMINI_MODEL, GENCHAT_DATABASE_URL,
GENCHAT_SESSION_ID, GENCHAT_SYSTEM_INSTRUCTION, GENCHAT_TEMPERATURE,
GENCHAT_MAX_OUTPUT_TOKENS, GENCHAT_REQUEST_TIMEOUT, GENCHAT_MAX_RETRIES,
GENCHAT_LOG_LEVEL and GENCHAT_LOG_FORMAT. Flags win over the environment. When GENCHAT_DATABASE_URL is set the history is stored in
PostgreSQL and can be resumed with --session.`,
		Example: `  # Start a conversation
  $ genchat

  # Resume a stored conversation with another model
  $ genchat --session 6f1c0e52-... --model gemini-2.5-pro`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f, in, out, errOut)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	fs := cmd.Flags()
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringVarP(&f.model, "model", "m", "", "model name (overrides GEMINI_MODEL)")
	fs.StringVarP(&f.session, "session", "s", "", "session ID to resume (overrides GENCHAT_SESSION_ID)")
	fs.StringVar(&f.system, "system", "", "system instruction (overrides GENCHAT_SYSTEM_INSTRUCTION)")
	fs.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error (overrides GENCHAT_LOG_LEVEL)")
	fs.StringVar(&f.logFormat, "log-format", "", "compact or json (overrides GENCHAT_LOG_FORMAT)")
	fs.BoolVar(&f.noStream, "no-stream", false, "wait for complete responses instead of streaming")
	fs.BoolVar(&f.tools, "tools", false, "let the model call the built-in calculator")

	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd
}

// Execute runs genchat on the process's standard streams. SIGINT and SIGTERM
// cancel the in-flight send and end the session.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(os.Stderr, "✗ %v\n", err)
		return err
	}
	return nil
}

func loadConfig(f flags) (config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return cfg, err
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.session != "" {
		cfg.SessionID = f.session
	}
	if f.system != "" {
		cfg.SystemInstruction = f.system
	}
	if f.logLevel != "" {
		level, ok := slogobs.ParseLevel(f.logLevel)
		if !ok {
			return cfg, fmt.Errorf("unknown log level %q", f.logLevel)
		}
		cfg.LogLevel = level
	}
	if f.logFormat != "" {
		cfg.LogFormat = slogobs.ParseFormat(f.logFormat)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, f flags, in io.Reader, out, errOut io.Writer) error {
	a, err := newApp(ctx, cfg, f.tools, errOut)
	if err != nil {
		return err
	}
	defer a.close()

	err = NewREPL(a.session, in, out, a.model, !f.noStream).WithTools(a.tools).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
