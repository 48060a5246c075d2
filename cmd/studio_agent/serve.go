package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxury-studio/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP processing service",
	Long:  `Start an HTTP server exposing batch upload, folder processing, result lookup, health and metrics endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *appConfig
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	a, err := newApp(ctx, &cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Port:           cfg.Port,
		InputDir:       cfg.InputDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, a.runner, a.store)
	return srv.Start(ctx)
}
