package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/detlab"
	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/driver/api"
	"github.com/absmach/detlab/driver/middleware"
	"github.com/absmach/detlab/pkg/mqtt"
	"github.com/absmach/detlab/pkg/prometheus"
	"github.com/absmach/detlab/pkg/storage"
	"github.com/absmach/detlab/trainer"
	smqerrors "github.com/absmach/supermq/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var variantsFlag []string

func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and export every model variant",
		Long: `Resolve the dataset, then train each model variant in order and export it.

Examples:
  # Train with the A100 profile
  detlab train --profile a100

  # Train two variants from a config file
  detlab train --config detlab.toml --variants s,m`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return train(cmd)
		},
	}

	cmd.Flags().StringSliceVar(&variantsFlag, "variants", nil, "Model variants to train, overriding the configuration (e.g. s,m,l)")

	return cmd
}

func train(cmd *cobra.Command) error {
	logger := newLogger(env.LogLevel)

	cfg, err := env.runConfig()
	if err != nil {
		return err
	}
	if len(variantsFlag) > 0 {
		cfg.Run.Variants = variantsFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := resolveDataset(ctx, cfg, logger)
	switch {
	case smqerrors.Contains(err, dataset.ErrNoDatasetAvailable):
		printDatasetGuidance(*cmd, cfg, err)

		return nil
	case err != nil:
		return err
	}

	svc, closeFn, err := newDriver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	// The status server never cancels the run; it is shut down once the run returns.
	var g errgroup.Group
	done := make(chan struct{})

	var runErr error
	g.Go(func() error {
		defer close(done)
		_, runErr = svc.Run(ctx, loc, cfg.Variants(), cfg.BatchConfig(), cfg.TrainDefaults())

		return nil
	})

	if env.StatusAddr != "" {
		srv := &http.Server{
			Addr:              env.StatusAddr,
			Handler:           api.MakeHandler(svc, logger, env.InstanceID),
			ReadHeaderTimeout: shutdownTimeout,
		}
		g.Go(func() error {
			logger.Info("Status server listening", slog.String("address", env.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server failed: %w", err)
			}

			return nil
		})
		g.Go(func() error {
			<-done
			sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer scancel()

			return srv.Shutdown(sctx)
		})
	}

	srvErr := g.Wait()
	if srvErr != nil {
		logger.Error("Status server exited with error", slog.Any("error", srvErr))
	}

	if j, err := svc.Job(ctx); err == nil {
		logJSONCmd(*cmd, j)
	}

	if env.PushgatewayURL != "" {
		if err := prometheus.Push(context.WithoutCancel(ctx), env.PushgatewayURL, svcName, env.InstanceID); err != nil {
			logger.Warn("Failed to push metrics", slog.Any("error", err))
		}
	}

	if runErr != nil {
		return runErr
	}

	return srvErr
}

func resolveDataset(ctx context.Context, cfg detlab.Config, logger *slog.Logger) (dataset.Location, error) {
	registry, err := env.registry(logger)
	if err != nil {
		return "", err
	}

	return dataset.NewResolver(registry, logger).Resolve(ctx, env.WorkDir, env.credential(), cfg.Dataset)
}

// newDriver wires the training driver with its middlewares. The returned function releases
// the tracer provider and the MQTT connection.
func newDriver(ctx context.Context, cfg detlab.Config, logger *slog.Logger) (driver.Service, func(), error) {
	tp, shutdownTracer, err := env.tracerProvider(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	var publisher mqtt.Publisher
	closeFn := shutdownTracer
	if env.MQTT.Address != "" {
		publisher, err = mqtt.NewPublisher(env.MQTT, env.InstanceID, logger)
		if err != nil {
			shutdownTracer()

			return nil, nil, fmt.Errorf("failed to initialize mqtt publisher: %w", err)
		}
		closeFn = func() {
			if err := publisher.Disconnect(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to disconnect from MQTT broker", slog.Any("error", err))
			}
			shutdownTracer()
		}
	}

	dcfg := cfg.DriverConfig()
	dcfg.Topic = env.MQTT.Prefix

	runtime := trainer.NewHostRuntime(logger, env.TrainerBin, env.WorkDir, os.Stderr)
	svc := driver.NewService(runtime, storage.NewInMemoryStorage(), publisher, dcfg, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tp.Tracer(svcName), svc)
	counter, latency := prometheus.MakeMetrics(svcName, "driver")
	variants, duration := prometheus.MakeVariantMetrics(svcName)
	svc = middleware.Metrics(counter, latency, variants, duration, svc)

	return svc, closeFn, nil
}

func printDatasetGuidance(cmd cobra.Command, cfg detlab.Config, err error) {
	logErrorCmd(cmd, err)
	logInfoCmd(cmd, "No dataset is available, nothing was trained. Either:")
	logInfoCmd(cmd, "  1. place a dataset with %s in %s/%s, or",
		dataset.DescriptorFile, env.WorkDir, dataset.LocalDir)
	logInfoCmd(cmd, "  2. set ROBOFLOW_API_KEY to download %s (format %s).",
		cfg.Dataset.String(), formatOrDefault(cfg.Dataset.Format))
}

func formatOrDefault(format string) string {
	if format == "" {
		return dataset.DefaultFormat
	}

	return format
}
