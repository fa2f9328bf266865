package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notegraph/notegraph/internal/router"
	"github.com/notegraph/notegraph/internal/server"
	"github.com/notegraph/notegraph/internal/ui"
	"github.com/notegraph/notegraph/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "admin",
	Short:   "Start the HTTP API and WebSocket event stream",
	Long: `Start the HTTP server. The repository is synchronized in the background
on startup and again whenever a read finds the tree older than cache.tree_ttl
or a signed GitHub push arrives.

Endpoints:
  GET  /api/study/tree              category tree (503 until the first sync)
  GET  /api/study/graph             link graph (204 when empty)
  GET  /api/study/view/{encoded}    rendered note
  POST /api/webhook/github          GitHub push webhook
  POST /api/refresh                 full refresh
  GET  /api/sync/history            recent sync runs
  GET  /health, /metrics, /ws

Example usage:
  notegraph serve --repo https://github.com/me/notes.git
  NOTEGRAPH_WEBHOOK_SECRET=... notegraph serve --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		rt := router.New(a.orch, appConfig.Repo.ContentPath, newLogger("router"))
		hooks := webhook.NewHandler(rt, a.repo.Branch(), newLogger("webhook"))

		if appConfig.Webhook.Secret == "" {
			fmt.Fprintf(os.Stderr, "%s webhook.secret is not set; push webhooks will be rejected\n", ui.RenderError("Warning:"))
		}

		srvConfig := &server.Config{
			Port:          appConfig.Server.Port,
			WebhookSecret: appConfig.Webhook.Secret,
			Version:       Version,
			Logger:        newLogger("http"),
		}
		if a.history != nil {
			srvConfig.History = a.history
		}
		srv := server.NewServer(srvConfig, a.orch, hooks)
		a.orch.AddListener(srv)

		if err := srv.Start(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		go func() {
			if err := a.orch.Refresh(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "%s initial sync failed: %v\n", ui.RenderError("Warning:"), err)
			}
		}()

		fmt.Printf("Serving %s on %s\n", ui.RenderAccent(appConfig.Repo.URL), ui.RenderAccent("http://"+srv.Addr()))
		fmt.Println(ui.RenderMuted("Press Ctrl+C to stop..."))

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
