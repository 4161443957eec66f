// Command intentd serves a stand-in intent classification endpoint with the
// same multipart contract as the hosted model.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	cli "github.com/spf13/pflag"

	"intentdeck/config"
	"intentdeck/server"
	"intentdeck/shutdown"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	port := cli.IntP("port", "p", 0, "Listen port (overrides PORT)")
	uploadDir := cli.String("upload-dir", "", "Keep uploads in this directory (overrides INTENTD_UPLOAD_DIR)")
	debug := cli.Bool("debug", false, "Debug logging")
	cli.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).With().Timestamp().Logger()

	cfg := config.MustLoadServer(*envFile)
	if *port != 0 {
		cfg.Port = *port
	}
	if *uploadDir != "" {
		cfg.UploadDir = *uploadDir
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.New(cfg, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("upload_dir", cfg.UploadDir).Strs("origins", cfg.AllowedOrigins).Msg("intentd listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
	logger.Info().Msg("intentd stopped")
}
