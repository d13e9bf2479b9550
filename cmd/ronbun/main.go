// Package main is the ronbun CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/analysis"
	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/convert"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/server"
	"github.com/hyperjump/ronbun/internal/store"
	"github.com/hyperjump/ronbun/internal/watcher"
	"github.com/hyperjump/ronbun/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ronbun/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "version", "--version", "-v":
		fmt.Printf("ronbun version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (uploads, model replies, eviction)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	converter, err := convert.NewConverter(&cfg.Convert)
	if err != nil {
		logger.Fatal("Failed to create converter", zap.Error(err))
	}
	analyzer, err := analysis.NewOrchestrator(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create analyzer", zap.Error(err))
	}
	st := store.NewMemoryStore()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchSvc := watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				id, err := ingestPaper(st, converter, path)
				if err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("paper ingested", zap.String("path", path), zap.String("document_id", id))
			},
			func(path string) {
				if st.DeleteBySource(path) {
					logger.Info("paper removed", zap.String("path", path))
				}
			},
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(st, converter, analyzer, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	pass := fs.Int("pass", 1, "analysis pass (1, 2, or 3)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fmt.Println("Usage: ronbun analyze [flags] <file.pdf>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	converter, err := convert.NewConverter(&cfg.Convert)
	if err != nil {
		logger.Fatal("Failed to create converter", zap.Error(err))
	}
	analyzer, err := analysis.NewOrchestrator(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create analyzer", zap.Error(err))
	}

	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		logger.Fatal("Failed to read file", zap.Error(err))
	}
	conv, err := converter.Convert(content)
	if err != nil {
		logger.Fatal("Failed to process PDF", zap.Error(err))
	}

	result, err := analyzer.Analyze(
		context.Background(),
		conv.Text,
		analysis.Pass(*pass),
		&analysis.PaperContext{Pages: metadataPages(conv.Metadata), ImageCount: len(conv.Images)},
	)
	if err != nil {
		logger.Fatal("Analysis rejected", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("Failed to render result", zap.Error(err))
	}
	fmt.Println(string(out))
}

// ingestPaper converts the PDF at path and stores it, replacing any earlier
// document ingested from the same path. Returns the new document id.
func ingestPaper(st store.Store, converter convert.Converter, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	conv, err := converter.Convert(content)
	if err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}
	st.DeleteBySource(path)

	metadata := conv.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["source_path"] = path

	doc := &models.ProcessedDocument{
		ID:       uuid.New().String(),
		Content:  conv.Text,
		Images:   conv.Images,
		Metadata: metadata,
	}
	st.Put(doc)
	return doc.ID, nil
}

// metadataPages reads the page count out of conversion metadata.
func metadataPages(metadata map[string]interface{}) int {
	if v, ok := metadata["pages"].(int); ok {
		return v
	}
	return 0
}

func printUsage() {
	fmt.Print(`ronbun - research paper analysis service

Usage:
  ronbun server [-config path] [-debug]     Run the HTTP API server
  ronbun analyze [-pass n] <file.pdf>       Analyze a local PDF and print the result
  ronbun version                            Print version
  ronbun help                               Show this help

The server accepts PDF uploads, converts them, and runs up to three analysis
passes against the configured model endpoint. Set the API key in the
environment variable named by llm.api_key_env (default OPENROUTER_API_KEY).
`)
}
