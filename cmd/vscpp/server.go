package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/vscpp/internal/api"
	"github.com/kalambet/vscpp/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the actions over HTTP for editor extensions (foreground)",
	Long: `Serve annotate, blame, cleanup and status over a local HTTP API bound to
127.0.0.1. With --mcp the same actions are also exposed as MCP tools on
stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(cmd.Context(), withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func runServer(ctx context.Context, withMCP bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	slog.Info("vscpp starting", "version", version, "root", a.store.Root())

	if _, err := config.EnsureServerToken(&a.cfg); err != nil {
		return fmt.Errorf("API token: %w", err)
	}
	slog.Info("API bearer token ready (print it with `vscpp token`)")

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Mount("/", api.NewAppHandler(api.AppDeps{
		Actions: a.actions,
		Token:   a.cfg.Server.Token,
	}))

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Actions: a.actions, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// serverState reports whether a vscpp server answers on the configured port.
func serverState(ctx context.Context, cfg config.Config) string {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "unknown"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "stopped"
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("error (HTTP %d)", resp.StatusCode)
	}
	return fmt.Sprintf("running on port %d", cfg.Server.Port)
}
