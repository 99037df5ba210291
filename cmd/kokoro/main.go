// Package main is the kokoro CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hyperjump/kokoro/internal/cli"
	"github.com/hyperjump/kokoro/internal/config"
	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/internal/rag"
	"github.com/hyperjump/kokoro/internal/server"
	"github.com/hyperjump/kokoro/internal/tui"
	"github.com/hyperjump/kokoro/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

// loadConfig loads config from path. With an empty path it uses config.yaml in the
// current directory when present, and the built-in defaults otherwise.
// Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	fallback := filepath.Join(cwd, "config.yaml")
	if _, statErr := os.Stat(fallback); statErr == nil {
		cfg, loadErr := config.Load(fallback)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, fallback, nil
	}
	cfg := config.Default(cwd)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func main() {
	// A missing .env is normal; the environment may already hold the key.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "ask":
		runAsk()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kokoro version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger. Failures exit the process.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved == "" {
		resolved = "(built-in defaults)"
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.String("provider", cfg.Provider.Name),
		zap.String("source", cfg.Source.Location()))
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (default: ./config.yaml or built-in defaults)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := components.LoadCorpus(ctx, false); err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	srv := server.NewServer(components.Pipeline, components, components.Metrics, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatal("Server failed", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Pipeline logs would draw over the form.
	if err := components.LoadCorpus(context.Background(), false, rag.WithLogger(zap.NewNop())); err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	timeout := cfg.Embedding.Timeout + cfg.Generation.Timeout
	if _, err := tea.NewProgram(tui.New(components.Pipeline, timeout), tea.WithAltScreen()).Run(); err != nil {
		logger.Fatal("Chat failed", zap.Error(err))
	}
}

// argsReorder moves flags (and their values) that appear after the question
// to the front so that flag.Parse sees them; it stops at the first non-flag.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args so quoting is optional.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	serverURL := fs.String("server", "", "ask a running server instead of loading the corpus locally")
	output := fs.String("output", "text", "output format: text or json")
	showContext := fs.Bool("context", false, "print the retrieved chunks after the answer")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kokoro ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		resp, err := askViaHTTP(*serverURL, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		ans := &models.Answer{Question: resp.Question, Answer: resp.Answer}
		_ = cli.WriteAnswer(os.Stdout, ans, format, false)
		return
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if err := components.LoadCorpus(ctx, false); err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	ans, err := components.Pipeline.Ask(ctx, question)
	if err != nil {
		fmt.Fprintln(os.Stderr, rag.ErrorMessage(err))
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format, *showContext); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string) (*models.RAGResponse, error) {
	endpoint := strings.TrimRight(serverURL, "/") + "/rag?question=" + url.QueryEscape(question)
	resp, err := http.Post(endpoint, "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &e) == nil && e.Detail != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.RAGResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	force := fs.Bool("force", false, "rebuild even when the cache matches")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rec, err := components.Builder.Ensure(ctx, *force)
	if err != nil {
		logger.Fatal("Indexing failed", zap.Error(err))
	}
	fmt.Printf("Indexed %d chunks from %s (build %s)\n", len(rec.Chunks), rec.Source, rec.BuildID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	serverURL := fs.String("server", "", "query a running server instead of the local cache")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var st *models.CorpusStatus
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		st, err = components.Status(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*models.CorpusStatus, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var st models.CorpusStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	provider := fs.String("provider", config.ProviderMistral, "provider: mistral, openai or mock")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*path, *provider, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

// writeDefaultConfig saves the defaults for provider to path. Relative paths
// inside the file stay relative so they resolve against the config directory.
func writeDefaultConfig(path, provider string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := &config.Config{Provider: config.ProviderConfig{Name: provider}}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func printUsage() {
	fmt.Println(`kokoro - question answering over a single indexed article

Usage:
  kokoro server [flags]           Start the HTTP API (POST /rag)
  kokoro chat [flags]             Open the interactive question form
  kokoro ask [flags] <question>   Answer one question and exit
  kokoro index [flags]            Build the embedding cache
  kokoro status [flags]           Show corpus and cache information
  kokoro init [flags]             Write a config file with the defaults
  kokoro version                  Show version
  kokoro help                     Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, else built-in defaults)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL; when set, the question is sent to a running server
  --output string    Output format: text or json (default: text)
  --context          Print the retrieved chunks after the answer

Index Flags:
  --force            Rebuild even when the cache matches the current settings

Init Flags:
  --provider string  mistral, openai or mock (default: mistral)
  --force            Overwrite an existing config file

Status Flags:
  --server string    Server URL; when set, status comes from a running server
  --output string    Output format: text or json (default: text)

Environment:
  MISTRAL_API_KEY    Provider credential (name set by provider.api_key_env; .env is loaded)

Examples:
  kokoro server
  kokoro ask What helps with sleep?
  kokoro ask --server http://localhost:8000 "Is anxiety common?"
  kokoro index --force
  kokoro status --output json`)
}
