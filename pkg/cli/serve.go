package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/teamctx-lab/teamctx/pkg/cli/config"
	httpctrl "github.com/teamctx-lab/teamctx/pkg/controller/http"
	"github.com/teamctx-lab/teamctx/pkg/service/embedding"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
	"github.com/teamctx-lab/teamctx/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const shutdownGrace = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var authCfg config.Auth
	var geminiCfg config.Gemini
	var meteringCfg config.Metering
	var policyCfg config.Policy
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TEAMCTX_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, meteringCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			jwtSecret, err := authCfg.Secret()
			if err != nil {
				return err
			}

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure Gemini client")
			}

			embedder, err := embedding.New(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure embedding service")
			}

			sink, sinkCloser, err := meteringCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure usage metering")
			}
			defer sinkCloser()

			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load retrieval policy")
			}

			uc := usecase.New(repo,
				usecase.WithEmbedding(embedder),
				usecase.WithLLMClient(llmClient),
				usecase.WithUsageSink(sink),
				usecase.WithRetrievalPolicy(policy),
				usecase.WithJWTSecret(jwtSecret),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "HTTP server failed")
					return
				}
				errCh <- nil
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logging.Default().Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down HTTP server")
			}

			return <-errCh
		},
	}
}
