package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-generator/internal/server"
	"github.com/jonathan/cv-generator/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start an HTTP server that accepts form submissions and serves CV pages, PDFs and the JSON API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	var rl *ratelimit.Config
	if a.cfg.RateLimitEnabled {
		rl = ratelimit.LoadConfig()
	}

	srv := server.New(server.Config{
		Port:      port,
		Version:   version,
		RateLimit: rl,
		Logger:    a.logger,
	}, a.service)

	return srv.Start(ctx)
}
