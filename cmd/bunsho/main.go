// Package main is the Bunsho CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hyperjump/bunsho/internal/config"
	"github.com/hyperjump/bunsho/internal/server"
	"github.com/hyperjump/bunsho/internal/service"
	"github.com/hyperjump/bunsho/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bunsho/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if that
// exists it is used. Returns the config and the path actually loaded.
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "scan":
		runScan()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "tag":
		runTag()
	case "recent":
		runRecent()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("bunsho version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildEngine loads config and constructs the engine for local commands.
func buildEngine(configPath string, debug bool) (*service.Engine, *config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	engine, err := service.New(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize engine: %v\n", err)
		os.Exit(1)
	}
	return engine, cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	engine, cfg, logger := buildEngine(*configPath, *debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := engine.ScanAll(ctx); err != nil {
		logger.Warn("initial scan incomplete", zap.Error(err))
	}
	if err := engine.Start(ctx); err != nil {
		logger.Fatal("failed to start watcher", zap.Error(err))
	}
	defer engine.Stop()

	srv := server.NewServer(engine, &cfg.Server, logger)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
		cancel()
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func runScan() {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	engine, _, logger := buildEngine(*configPath, false)
	defer logger.Sync()

	stats, err := engine.ScanAll(context.Background())
	if err != nil {
		fmt.Printf("Scan failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scan complete: %d added, %d kept, %d failed (%d tracked)\n",
		stats.Added, stats.Kept, stats.Failed, engine.DocumentCount())
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	asJSON := fs.Bool("json", false, "output JSON")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: bunsho search [flags] <query>")
		os.Exit(1)
	}
	query := fs.Arg(0)

	engine, _, logger := buildEngine(*configPath, false)
	defer logger.Sync()

	results := engine.Search(context.Background(), query)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
		return
	}
	fmt.Printf("\nFound %d results\n\n", len(results))
	for i, res := range results {
		fmt.Printf("%2d. [%.2f] %s\n    %s\n", i+1, res.Score, res.Document.Path, res.Snippet)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: bunsho ask [flags] <prompt>")
		os.Exit(1)
	}
	prompt := fs.Arg(0)

	engine, _, logger := buildEngine(*configPath, false)
	defer logger.Sync()

	answer, err := engine.Ask(context.Background(), prompt, "")
	if err != nil {
		fmt.Printf("Ask failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
}

func runTag() {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	args := fs.Args()
	if len(args) < 2 {
		fmt.Println("Usage: bunsho tag add <id> <tag> | rm <id> <tag> | rename <old> <new> | delete <tag>")
		os.Exit(1)
	}

	engine, _, logger := buildEngine(*configPath, false)
	defer logger.Sync()
	mgr := engine.Tags()

	switch args[0] {
	case "add":
		if len(args) != 3 {
			fmt.Println("Usage: bunsho tag add <id> <tag>")
			os.Exit(1)
		}
		if err := mgr.AddTag(args[1], args[2]); err != nil {
			fmt.Printf("Failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Tagged.")
	case "rm":
		if len(args) != 3 {
			fmt.Println("Usage: bunsho tag rm <id> <tag>")
			os.Exit(1)
		}
		if err := mgr.RemoveTag(args[1], args[2]); err != nil {
			fmt.Printf("Failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Untagged.")
	case "rename":
		if len(args) != 3 {
			fmt.Println("Usage: bunsho tag rename <old> <new>")
			os.Exit(1)
		}
		affected := mgr.RenameTag(args[1], args[2])
		fmt.Printf("Renamed on %d documents.\n", affected)
	case "delete":
		affected := mgr.DeleteTag(args[1])
		fmt.Printf("Deleted from %d documents.\n", affected)
	default:
		fmt.Printf("Unknown tag subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func runRecent() {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of documents")
	_ = fs.Parse(os.Args[2:])

	engine, _, logger := buildEngine(*configPath, false)
	defer logger.Sync()

	for _, doc := range engine.Recent(*limit) {
		fmt.Printf("%s  %s\n", doc.ModifiedAt.Format("2006-01-02 15:04"), doc.Path)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	url := "http://" + cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port) + "/api/v1/status"
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("Server not reachable at %s: %v\n", url, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("Bad status response: %v\n", err)
		os.Exit(1)
	}
	for k, v := range status {
		fmt.Printf("%s: %v\n", k, v)
	}
}

func printUsage() {
	fmt.Println(`Bunsho - document index & hybrid retrieval engine

Usage:
  bunsho server   [-config path] [-debug]     run the API server and watcher
  bunsho scan     [-config path]              reconcile the documents root
  bunsho search   [-config path] [-json] <q>  search tracked documents
  bunsho ask      [-config path] <prompt>     answer a question with context
  bunsho tag      add|rm|rename|delete ...    manage document tags
  bunsho recent   [-config path] [-limit n]   list recently modified documents
  bunsho status   [-config path]              query a running server
  bunsho version                              print version`)
}
