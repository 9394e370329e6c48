// Caddie is the conversational backend for an on-course golf
// assistant.
//
// It classifies a golfer's free-form speech or text into app intents,
// routes high-confidence intents to the mobile app's modules, asks for
// clarification when unsure, and keeps the short rolling session
// context the classifier works from. Configuration is loaded from a
// single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	caddie serve              Start the API server
//	caddie classify <text>    Classify a single utterance (for testing)
//	caddie version            Print version and build information
//	caddie -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fairwaylabs/caddie/internal/analytics"
	"github.com/fairwaylabs/caddie/internal/buildinfo"
	"github.com/fairwaylabs/caddie/internal/clarify"
	"github.com/fairwaylabs/caddie/internal/config"
	"github.com/fairwaylabs/caddie/internal/events"
	"github.com/fairwaylabs/caddie/internal/intent"
	"github.com/fairwaylabs/caddie/internal/llm"
	"github.com/fairwaylabs/caddie/internal/persona"
	"github.com/fairwaylabs/caddie/internal/pipeline"
	"github.com/fairwaylabs/caddie/internal/session"
	"github.com/fairwaylabs/caddie/internal/store"
	"github.com/fairwaylabs/caddie/internal/web"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the caddie command. All OS-level
// dependencies are injected as parameters so run can be driven from
// tests without global state. We parse arguments by hand rather than
// using the flag package for the same reason: flag.CommandLine is a
// package-level global, and our argument surface is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "classify":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: caddie classify <text>")
		}
		return runClassify(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Caddie - Conversational Golf Assistant Backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: caddie [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve             Start the API server")
	fmt.Fprintln(w, "  classify <text>   Classify a single utterance (for testing)")
	fmt.Fprintln(w, "  version           Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/caddie/config.yaml, /etc/caddie/config.yaml")
	return nil
}

// runClassify handles the "caddie classify <text>" subcommand. It boots
// a minimal classifier (empty session, no store, no server) and prints
// the classification outcome for one utterance. Useful for smoke tests
// and prompt tuning without starting the server.
func runClassify(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	input := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client := llm.NewOllamaClient(cfg.Model.BaseURL, cfg.Model.Name, logger)
	classifier := intent.NewClassifier(client, clarify.NewGenerator(logger), logger,
		intent.WithTimeout(time.Duration(cfg.Model.TimeoutSec)*time.Second))

	empty := session.NewStore().Snapshot()
	result, err := classifier.Classify(ctx, input, &empty)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"kind":        result.Kind.String(),
		"intent":      result.Intent,
		"target":      result.Target,
		"message":     result.Message,
		"suggestions": result.Suggestions,
	})
}

// runServe handles the "caddie serve" subcommand. It is the primary
// operating mode: loads config, opens the round database, wires the
// classifier, formatter, session store, and pipeline together, starts
// the HTTP server, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Caddie",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Model.Name,
		"model_url", cfg.Model.BaseURL,
	)

	// --- Data directory and round store ---
	// Durable rounds and shots live in SQLite under the data directory.
	// The session context only references them by ID.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, "rounds.db")
	rounds, err := store.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open round database %s: %w", dbPath, err)
	}
	defer rounds.Close()
	logger.Info("round database opened", "path", dbPath)

	// --- Persona ---
	// Optional markdown file prepended to the classification system
	// prompt, giving the assistant its caddie identity.
	var personaContent string
	if cfg.PersonaFile != "" {
		data, err := os.ReadFile(cfg.PersonaFile)
		if err != nil {
			return fmt.Errorf("load persona %s: %w", cfg.PersonaFile, err)
		}
		personaContent = string(data)
		logger.Info("persona loaded", "path", cfg.PersonaFile, "size", len(personaContent))
	}

	// --- Classifier ---
	client := llm.NewOllamaClient(cfg.Model.BaseURL, cfg.Model.Name, logger)
	if err := client.Ping(ctx); err != nil {
		logger.Warn("model endpoint not reachable at startup", "url", cfg.Model.BaseURL, "error", err)
	}

	classifier := intent.NewClassifier(client, clarify.NewGenerator(logger), logger,
		intent.WithTimeout(time.Duration(cfg.Model.TimeoutSec)*time.Second),
		intent.WithPersona(personaContent),
	)

	// --- Response formatter ---
	formatter, err := persona.NewFormatter(logger)
	if err != nil {
		return fmt.Errorf("create formatter: %w", err)
	}

	// --- Session, events, pipeline ---
	sess := session.NewStore()
	bus := events.New()
	pipe := pipeline.New(logger, classifier, formatter, sess, rounds, bus)

	// --- Signal handling ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Analytics sink ---
	// Optional: forwards sanitized pipeline events to an MQTT broker.
	if cfg.MQTT.Enabled {
		sink := analytics.New(cfg.MQTT, bus, logger)
		go func() {
			if err := sink.Run(ctx); err != nil {
				logger.Error("analytics sink failed", "error", err)
			}
		}()
		logger.Info("analytics sink enabled", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	} else {
		logger.Info("analytics sink disabled (not configured)")
	}

	// --- API server ---
	mux := http.NewServeMux()
	web.NewServer(logger, pipe, sess, bus).RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("API server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Caddie stopped")
	return nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
// Otherwise [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
