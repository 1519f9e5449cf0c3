package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tracklab/stocktrack/internal/api"
	"github.com/tracklab/stocktrack/internal/config"
	"github.com/tracklab/stocktrack/internal/feed"
	"github.com/tracklab/stocktrack/internal/history"
	"github.com/tracklab/stocktrack/internal/poller"
	"github.com/tracklab/stocktrack/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stocktrack server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running stocktrack server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stocktrack system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "stocktrack.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func feedSource(cfg config.Config) (feed.Source, error) {
	if err := cfg.ValidateFeed(); err != nil {
		return nil, err
	}
	switch cfg.Feed.Source {
	case "http":
		return feed.HTTP{URL: cfg.Feed.URL}, nil
	default:
		return feed.File{Path: cfg.Feed.Path}, nil
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "stocktrack version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	source, err := feedSource(cfg)
	if err != nil {
		return err
	}

	apiToken, err := config.EnsureAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("stocktrack is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("stocktrack is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	db, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	store := history.New(db,
		history.WithRetention(cfg.History.RetentionSnapshots, cfg.History.RetentionEvents),
	)
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if n, err := store.Len(); err == nil {
		slog.Info("history loaded", "snapshots", n)
	}

	p := poller.New(source, store, cfg.PollInterval())

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:  store,
		Poller: p,
		Token:  apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{Store: store})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.Run(gctx)
		return nil
	})

	if cfg.Feed.Source == "file" && cfg.Feed.Watch {
		g.Go(func() error {
			if err := feed.Watch(gctx, cfg.Feed.Path, 0, p.Kick); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("feed watcher stopped", "error", err)
			}
			return nil
		})
		slog.Info("watching feed file", "path", cfg.Feed.Path)
	}

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "stocktrack listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("stocktrack is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop stocktrack (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to stocktrack (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			running = true
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	switch cfg.Feed.Source {
	case "http":
		printStatus("Feed", "http %s", cfg.Feed.URL)
	default:
		watch := ""
		if cfg.Feed.Watch {
			watch = " (watched)"
		}
		printStatus("Feed", "file %s%s", cfg.Feed.Path, watch)
	}
	printStatus("Poll interval", "%s", cfg.PollInterval())

	if running {
		if client, err := newAPIClient(); err == nil {
			if resp, err := client.get("/api/snapshot/latest"); err == nil {
				var snap struct {
					TakenAt       time.Time `json:"takenAt"`
					TotalOnHand   int       `json:"totalOnHand"`
					ProductCount  int       `json:"productCount"`
					LowStockCount int       `json:"lowStockCount"`
				}
				if decodeJSON(resp, &snap) == nil {
					printStatus("Last snapshot", "%s", snap.TakenAt.Local().Format(time.RFC3339))
					printStatus("Total on hand", "%d across %d products", snap.TotalOnHand, snap.ProductCount)
					printStatus("Low stock", "%d products", snap.LowStockCount)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
