package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"snippetbot/internal/infra/remote"
)

func newExecutorCmd(c *cli) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "executor",
		Short: "Serve the executor HTTP API",
		Long: `Expose the local sandbox or docker backend over HTTP so that bots
configured with backend=remote can delegate executions to this host.

Examples:
  snippetbot executor
  snippetbot executor --listen :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				c.cfg.ListenAddr = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runExecutorServer(ctx, c.cfg, c.logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (overrides listen_addr)")
	return cmd
}

func runExecutorServer(ctx context.Context, cfg appConfig, logger *zap.Logger) error {
	if cfg.Backend == backendRemote {
		return errors.New("executor cannot serve the remote backend; choose sandbox or docker")
	}

	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := executor.Close(); cerr != nil {
			logger.Warn("failed to close executor", zap.Error(cerr))
		}
	}()

	server, err := remote.NewServer(remote.ServerConfig{
		Executor:   executor,
		MaxTimeout: cfg.ExecutorMaxTimeout,
		Logger:     logger.Named("http"),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down executor server")
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
