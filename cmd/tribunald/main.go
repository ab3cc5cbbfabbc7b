// Command tribunald runs the tribunal review server: four reviewer
// personas, the turn coordinator, verdict synthesis, and the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/veritas-review/tribunal/internal/api"
	"github.com/veritas-review/tribunal/internal/config"
	"github.com/veritas-review/tribunal/internal/llm"
	"github.com/veritas-review/tribunal/internal/persona"
	"github.com/veritas-review/tribunal/internal/store"
	"github.com/veritas-review/tribunal/internal/tribunal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tribunald: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the base config file")
	profile := flag.String("profile", "", "config profile name to layer on top")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	// Missing .env is fine; environment may already be set.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	profilePath := ""
	if *profile != "" {
		profilePath = config.ProfilePath(*profile)
	}
	cfg, loaded, err := config.Load(*configPath, profilePath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("config loaded", "files", loaded)

	client := llm.NewHTTPClient(cfg)

	personaTemp, _ := cfg.ResolveLLMRoleOptions("persona", 0.3, 0)
	panel, err := persona.NewPanel(client, cfg.LLM.Model, personaTemp)
	if err != nil {
		return err
	}
	registry, err := tribunal.NewRegistry(panel)
	if err != nil {
		return err
	}

	routerTemp, _ := cfg.ResolveLLMRoleOptions("router", 0.1, 0)
	maxFailures := cfg.LLM.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}
	cooldown := time.Duration(cfg.LLM.CooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}
	router := &tribunal.Router{
		Client:       client,
		Model:        cfg.LLM.Model,
		Temperature:  routerTemp,
		SummaryDepth: cfg.Tribunal.SummaryMessages,
		Guard:        llm.NewGuard(maxFailures, cooldown),
		Logger:       logger,
	}

	coordinator, err := tribunal.NewTurnCoordinator(registry, router, cfg.Tribunal.SummaryMessages, logger)
	if err != nil {
		return err
	}

	sinks, err := buildSinks(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	judgeTemp, _ := cfg.ResolveLLMRoleOptions("judge", 0.2, 0)
	synthesizer := &tribunal.Synthesizer{
		Client:       client,
		Model:        cfg.LLM.Model,
		Temperature:  judgeTemp,
		HistoryDepth: cfg.Tribunal.VerdictHistoryDepth,
		Sinks:        sinks,
		Logger:       logger,
	}

	service, err := tribunal.NewService(coordinator, synthesizer, tribunal.ServiceOptions{
		MinDocumentChars: cfg.Tribunal.MinDocumentChars,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{AppName: "tribunald"})
	handler := api.NewHandler(service, logger)
	handler.ReportDir = cfg.Server.ReportDir
	handler.Register(app)

	listenAddr := cfg.Server.Addr
	if *addr != "" {
		listenAddr = *addr
	}
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	logger.Info("listening", "addr", listenAddr)
	return app.Listen(listenAddr)
}

// buildSinks wires only the persistence backends enabled in config. An
// empty slice is valid; verdicts then skip persistence entirely.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]tribunal.Sink, error) {
	var sinks []tribunal.Sink

	if cfg.Sinks.Memory.Enabled {
		sinks = append(sinks, store.NewMemoryIndex(store.MemoryIndexConfig{
			Addr:     cfg.Sinks.Memory.Addr,
			Password: cfg.Sinks.Memory.Password,
			DB:       cfg.Sinks.Memory.DB,
		}))
	}

	if cfg.Sinks.Ledger.Enabled {
		ledger, err := store.NewLedger(cfg.Sinks.Ledger.DSN)
		if err != nil {
			return nil, err
		}
		if err := ledger.Init(ctx); err != nil {
			return nil, fmt.Errorf("ledger init: %w", err)
		}
		sinks = append(sinks, ledger)
	}

	if cfg.Sinks.Blob.Enabled {
		blob, err := store.NewBlobStore(ctx, store.BlobStoreConfig{
			Bucket:   cfg.Sinks.Blob.Bucket,
			Region:   cfg.Sinks.Blob.Region,
			Endpoint: cfg.Sinks.Blob.Endpoint,
			Prefix:   cfg.Sinks.Blob.Prefix,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, blob)
	}

	names := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		names = append(names, sink.Name())
	}
	logger.Info("persistence sinks configured", "sinks", names)
	return sinks, nil
}
