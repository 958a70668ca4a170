package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/spf13/cobra"

	"github.com/uminoko/todoflow/internal/config"
	"github.com/uminoko/todoflow/internal/gateway"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the chat gateway server",
	Long: `Start the chat gateway. The gateway accepts conversation history on
POST /api/chat, connects to the MCP bridge for tools, and streams the
model's response back as server-sent events.

Requires GEMINI_API_KEY in the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateway()
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

// runGateway initializes Genkit and starts the chat gateway server.
func runGateway() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting chat gateway", "version", Version, "model", cfg.ModelName)

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}),
	)
	if g == nil {
		return errors.New("initializing genkit with gemini provider")
	}

	gatewayServer, err := gateway.NewServer(gateway.ServerConfig{
		Logger:    logger,
		Genkit:    g,
		BridgeURL: cfg.BridgeURL,
		ModelName: cfg.ModelName,
	})
	if err != nil {
		return fmt.Errorf("creating gateway server: %w", err)
	}

	logger.Info("chat gateway ready",
		"addr", cfg.GatewayAddr,
		"chat", "/api/chat",
		"bridge", cfg.BridgeURL,
	)

	return serveHTTP(ctx, logger, &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           gatewayServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	})
}
