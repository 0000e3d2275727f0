package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote task service",
	Long: `Run the HTTP task service that pos clients sync with.

It keeps its own task list in server.data_file and exposes:
  GET   /api/tasks                        ranked task list
  POST  /api/tasks                        create a task (title or capture)
  PATCH /api/tasks/{id}                   partial update
  POST  /api/tasks/{id}/auto_schedule     assign the earliest free slot
  GET   /health

Stop with Ctrl+C; in-flight requests are drained before exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if NewTaskService == nil {
			return fmt.Errorf("task service not initialized")
		}

		addr := serveAddr
		if addr == "" && Config != nil {
			addr = Config.Server.Addr
		}
		if addr == "" {
			addr = ":8000"
		}

		svc, err := NewTaskService()
		if err != nil {
			return fmt.Errorf("starting task service: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.ListenAndServe(ctx, addr); err != nil {
			return fmt.Errorf("running task service: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr from .posconfig)")
	rootCmd.AddCommand(serveCmd)
}
