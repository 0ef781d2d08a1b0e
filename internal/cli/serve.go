package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/server"
)

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP authorization server",
	Long:  "Runs the gate behind an HTTP API. Override tier state lives for the\nlife of the process; webhook configuration hot-reloads on config writes.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	listen := serveListen
	if listen == "" {
		listen = rt.cfg.Listen
	}

	logger := rt.cfg.Logger()
	srv := server.New(rt.gate, logger, cfgPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloader, err := server.NewReloader(srv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	} else if reloader != nil {
		go reloader.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:         listen,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
