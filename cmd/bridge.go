package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uminoko/todoflow/internal/bridge"
	"github.com/uminoko/todoflow/internal/config"
	"github.com/uminoko/todoflow/internal/todoclient"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Start the MCP tool bridge server",
	Long: `Start the MCP tool bridge. The bridge exposes the todo API as MCP
tools over SSE sessions: clients open GET /sse for the event stream and
post JSON-RPC messages to the per-session /messages endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBridge()
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

// runBridge initializes and starts the MCP bridge server.
func runBridge() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting MCP bridge", "version", Version, "api", cfg.APIBaseURL)

	client := todoclient.New(cfg.APIBaseURL, time.Duration(cfg.ToolTimeoutSeconds)*time.Second)

	bridgeServer, err := bridge.NewServer(bridge.Config{
		Name:    "todoflow-bridge",
		Version: Version,
		Client:  client,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating bridge server: %w", err)
	}

	logger.Info("MCP bridge ready",
		"addr", cfg.BridgeAddr,
		"sse", "/sse",
		"messages", "/messages",
	)

	return serveHTTP(ctx, logger, &http.Server{
		Addr:              cfg.BridgeAddr,
		Handler:           bridgeServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		// No WriteTimeout: SSE sessions stay open until the client leaves.
		IdleTimeout: idleTimeout,
	})
}
