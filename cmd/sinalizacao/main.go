package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/sinalizacao/internal/api"
	"github.com/erazemk/sinalizacao/internal/assistant"
	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/cache"
	"github.com/erazemk/sinalizacao/internal/config"
	"github.com/erazemk/sinalizacao/internal/db"
	"github.com/erazemk/sinalizacao/internal/engine"
	"github.com/erazemk/sinalizacao/internal/metrics"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/seed"
	"github.com/erazemk/sinalizacao/internal/session"
	"github.com/erazemk/sinalizacao/internal/store"
	"github.com/erazemk/sinalizacao/internal/web"
)

// purgeInterval is how often expired revoked tokens are removed.
const purgeInterval = time.Hour

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("sinalizacao", flag.ContinueOnError)
	cfg.BindFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: sinalizacao [flags]

Flags:
  -d, -db <path>          SQLite database path (default: sinalizacao.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -s, -seed <path>        seed file used on first run (default: built-in)
  -h, -help               show this help and exit

Environment:
  SST_REDIS_ADDR          keep the last-access record in Redis
  SST_GEMINI_API_KEY      enable the stock assistant
  SST_GEMINI_MODEL        assistant model
  SST_CREDENTIALS         bcrypt or plain (default: bcrypt)
  SST_LOGIN_RATE          login attempts per minute per IP (default: 10)
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DB)

	verifier, err := auth.NewVerifier(cfg.Credentials)
	if err != nil {
		return err
	}

	seedFile, err := seed.Load(cfg.Seed)
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}
	seeded, adminSecret, err := seed.Apply(ctx, database, seedFile, verifier)
	if err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	if seeded {
		printInitResult(cfg.DB, seedFile.Admin.Name, adminSecret)
		fmt.Println()
	}

	var kv session.KV = store.Settings{DB: database}
	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		kv = cache.NewKV(client, cache.DefaultPrefix)
		slog.Info("last access kept in redis", "addr", cfg.RedisAddr)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	users, items, err := store.Load(ctx, database)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	eng, err := engine.New(users, items,
		engine.WithVerifier(verifier),
		engine.WithTracker(session.NewTracker(kv)),
		engine.WithJournal(store.Journal{DB: database}),
	)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	slog.Info("data loaded", "users", len(users), "items", len(items))

	tmpl, err := web.LoadTemplates()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	m := metrics.New()
	m.SetCriticalItems(eng.Stats().CriticalCount)

	deps := &api.Deps{
		Engine:           eng,
		DB:               database,
		JWTSecret:        jwtSecret,
		Templates:        tmpl,
		Metrics:          m,
		AssistantTimeout: cfg.AssistantTimeout,
		LoginRate:        cfg.LoginRate,
	}
	if cfg.GeminiAPIKey != "" {
		g := assistant.NewGemini(cfg.GeminiAPIKey, &http.Client{Timeout: cfg.AssistantTimeout})
		g.Endpoint = cfg.GeminiEndpoint
		g.Model = cfg.GeminiModel
		deps.Assistant = g
		slog.Info("assistant enabled", "model", g.Model)
	} else {
		slog.Warn("assistant disabled, SST_GEMINI_API_KEY not set")
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				n, err := store.PurgeExpiredTokens(gctx, database, now)
				if err != nil {
					slog.Error("failed to purge revoked tokens", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("purged revoked tokens", "count", n)
				}
			}
		}
	})

	err = g.Wait()
	slog.Info("server stopped, closing database")
	return err
}

// printInitResult prints the first-run result to stdout.
func printInitResult(dbPath, adminName, secret string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Seed data loaded.")
	fmt.Println()
	fmt.Println("Administrator account:")
	fmt.Printf("  ID:       %s\n", model.AdminID)
	fmt.Printf("  Name:     %s\n", adminName)
	if secret == "" {
		fmt.Println("  Password: set in the seed file")
		return
	}
	fmt.Printf("  Password: %s\n", secret)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println("The administrator can change it after logging in.")
}
