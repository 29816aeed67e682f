package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/cli/config"
	httpctrl "github.com/chiron-lab/chiron/pkg/controller/http"
	"github.com/chiron-lab/chiron/pkg/service/tutor"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
	"github.com/chiron-lab/chiron/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var tuningPath string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var graphCfg config.Graph
	var speechCfg config.Speech
	var synthCfg config.Synthesis
	var storageCfg config.Storage

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CHIRON_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "Path to the pipeline tuning file (TOML)",
			Sources:     cli.EnvVars("CHIRON_TUNING"),
			Destination: &tuningPath,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, graphCfg.Flags()...)
	flags = append(flags, speechCfg.Flags()...)
	flags = append(flags, synthCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Tuning shapes both voice capture and the answer pipeline,
			// so it is resolved before anything else
			var tuning *config.Tuning
			if tuningPath != "" {
				t, err := config.LoadTuning(tuningPath)
				if err != nil {
					return goerr.Wrap(err, "failed to load tuning file")
				}
				tuning = t
				logging.Default().Info("Loaded pipeline tuning", "path", tuningPath)
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			// Knowledge graph is optional but failing to load a configured
			// one is fatal rather than silently running without it
			kg, err := graphCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load knowledge graph")
			}

			var ucOpts []usecase.Option
			if kg != nil {
				ucOpts = append(ucOpts, usecase.WithGraph(kg))
			}
			if tuning != nil {
				ucOpts = append(ucOpts, tuning.UseCaseOptions()...)
			}

			// Initialize answer generation if Gemini is configured
			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure Gemini client")
			}
			if llmClient != nil {
				tutorSvc, err := tutor.New(llmClient)
				if err != nil {
					return goerr.Wrap(err, "failed to initialize tutor service")
				}
				ucOpts = append(ucOpts, usecase.WithGenerator(tutorSvc))
				logging.Default().Info("Gemini answer generation enabled")
			} else {
				logging.Default().Warn("Gemini is not configured, answers come from the knowledge base only")
			}

			// Initialize speech-to-text if enabled
			transcriber, err := speechCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure speech-to-text")
			}
			if transcriber != nil {
				defer safe.Close(ctx, transcriber)
				ucOpts = append(ucOpts, usecase.WithTranscriber(transcriber))
			}

			// Initialize speech synthesis and audio storage if configured
			synth, err := synthCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure speech synthesis")
			}
			if synth != nil {
				ucOpts = append(ucOpts, usecase.WithSynthesizer(synth))
			}

			store, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure audio storage")
			}
			if store != nil {
				if closer, ok := store.(io.Closer); ok {
					defer safe.Close(ctx, closer)
				}
				ucOpts = append(ucOpts, usecase.WithAudioStore(store))
			}

			uc := usecase.New(repo, ucOpts...)

			// Create HTTP server options
			var httpOpts []httpctrl.Options
			if kg != nil {
				httpOpts = append(httpOpts, httpctrl.WithGraph(kg))
			}
			if tuning != nil {
				httpOpts = append(httpOpts, httpctrl.WithVoiceConfig(tuning.ToVoiceConfig()))
			}

			srv, err := httpctrl.New(uc, httpOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
