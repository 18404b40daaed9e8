package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/chat/middleware"
	"github.com/leofalp/genchat/core/config"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/ai/gemini"
	"github.com/leofalp/genchat/providers/memory/inmemory"
	"github.com/leofalp/genchat/providers/memory/pgmemory"
	"github.com/leofalp/genchat/providers/observability"
	"github.com/leofalp/genchat/providers/observability/slogobs"
	"github.com/leofalp/genchat/providers/tool"
	"github.com/leofalp/genchat/providers/tool/calculator"
)

// app is everything one genchat run owns.
type app struct {
	session *chat.Session
	model   string
	tools   *tool.Catalog
	close   func()
}

// newApp wires the provider, the history store, the observer and the
// middleware chain from cfg. withTools declares the built-in tools.
// logOutput receives diagnostics.
func newApp(ctx context.Context, cfg config.Config, withTools bool, logOutput io.Writer) (*app, error) {
	observer := slogobs.New(
		slogobs.WithLevel(cfg.LogLevel),
		slogobs.WithFormat(cfg.LogFormat),
		slogobs.WithOutput(logOutput),
	)

	provider := gemini.New()
	if cfg.APIKey != "" {
		provider.WithAPIKey(cfg.APIKey)
	}
	if cfg.BaseURL != "" {
		provider.WithBaseURL(cfg.BaseURL)
	}
	if cfg.Model != "" {
		provider.WithModel(cfg.Model)
	}

	closeFn := func() {}
	opts := []chat.Option{
		chat.WithObserver(observer),
		chat.WithMiddleware(middlewares(cfg, observer.Logger())...),
	}
	if cfg.SessionID != "" {
		opts = append(opts, chat.WithSessionID(cfg.SessionID))
	}

	if cfg.Persistent() {
		store, pool, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closeFn = pool.Close
		opts = append(opts, chat.WithMemory(store), chat.WithSessionID(store.SessionID()))
		observer.Info(ctx, "using PostgreSQL history", observability.String(observability.AttrChatSessionID, store.SessionID()))
	} else {
		opts = append(opts, chat.WithMemory(inmemory.New()))
	}

	params := chat.Params{GenerationConfig: cfg.GenerationConfig()}
	if cfg.SystemInstruction != "" {
		params.SystemInstruction = &ai.Content{Parts: []ai.Part{ai.NewTextPart(cfg.SystemInstruction)}}
	}

	var catalog *tool.Catalog
	if withTools {
		calc, err := calculator.New()
		if err != nil {
			closeFn()
			return nil, err
		}
		catalog = tool.NewCatalog(calc)
		params.Tools = catalog.Declarations()
	}

	session, err := chat.New(provider, params, opts...)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &app{session: session, model: provider.Model(), tools: catalog, close: closeFn}, nil
}

// middlewares builds the chain outermost first: the timeout covers every
// retry and logging sees each attempt.
func middlewares(cfg config.Config, logger *slog.Logger) []chat.MiddlewareConfig {
	var chain []chat.MiddlewareConfig
	if cfg.RequestTimeout > 0 {
		chain = append(chain, middleware.NewTimeoutMiddleware(cfg.RequestTimeout))
	}
	if cfg.MaxRetries > 0 {
		chain = append(chain, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: cfg.MaxRetries}))
	}
	level := middleware.LogLevelMinimal
	if cfg.LogLevel < slog.LevelInfo {
		level = middleware.LogLevelVerbose
	}
	return append(chain, middleware.NewLoggingMiddleware(logger, level))
}

// openStore connects to cfg.DatabaseURL and returns a store bound to the
// configured session, or to a fresh one.
func openStore(ctx context.Context, cfg config.Config) (*pgmemory.PgMemory, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	store := pgmemory.New(pool, sessionID)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}
