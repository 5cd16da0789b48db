package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/detlab"
	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/dataset/oci"
	"github.com/absmach/detlab/dataset/roboflow"
	"github.com/absmach/detlab/pkg/mqtt"
	"github.com/absmach/detlab/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	svcName = "detlab"

	RoboflowRegistry = "roboflow"
	OCIRegistry      = "oci"
)

// Env is the process configuration read from the environment and overridden by flags.
type Env struct {
	LogLevel       string        `env:"DETLAB_LOG_LEVEL"       envDefault:"info"`
	InstanceID     string        `env:"DETLAB_INSTANCE_ID"`
	ConfigPath     string        `env:"DETLAB_CONFIG"`
	Profile        string        `env:"DETLAB_PROFILE"         envDefault:"a100"`
	Credential     string        `env:"ROBOFLOW_API_KEY"`
	TrainerBin     string        `env:"DETLAB_TRAINER_BIN"     envDefault:"yolo"`
	WorkDir        string        `env:"DETLAB_WORK_DIR"        envDefault:"."`
	Registry       string        `env:"DETLAB_REGISTRY"        envDefault:"roboflow"`
	RoboflowURL    string        `env:"DETLAB_ROBOFLOW_URL"    envDefault:"https://api.roboflow.com"`
	FetchTimeout   time.Duration `env:"DETLAB_FETCH_TIMEOUT"   envDefault:"30m"`
	OCI            oci.Config    `envPrefix:"DETLAB_OCI_"`
	OCIToken       string        `env:"DETLAB_OCI_TOKEN"`
	StatusAddr     string        `env:"DETLAB_STATUS_ADDR"`
	StatusURL      string        `env:"DETLAB_STATUS_URL"      envDefault:"http://localhost:9090"`
	MQTT           mqtt.Config   `envPrefix:"DETLAB_MQTT_"`
	PushgatewayURL string        `env:"DETLAB_PUSHGATEWAY_URL"`
	OTELURL        url.URL       `env:"DETLAB_OTEL_URL"`
	TraceRatio     float64       `env:"DETLAB_TRACE_RATIO"     envDefault:"1.0"`
}

var env = &Env{}

func SetEnv(e *Env) {
	env = e
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	return logger
}

// runConfig loads the config file when one is given, otherwise the selected built-in profile.
func (e *Env) runConfig() (detlab.Config, error) {
	if e.ConfigPath != "" {
		return detlab.LoadConfig(e.ConfigPath)
	}

	profile := e.Profile
	if profile == "" {
		profile = detlab.DefaultProfile
	}

	return detlab.Profile(profile)
}

func (e *Env) registry(logger *slog.Logger) (dataset.Registry, error) {
	switch e.Registry {
	case "", RoboflowRegistry:
		return roboflow.New(roboflow.Config{
			URL:     e.RoboflowURL,
			WorkDir: e.WorkDir,
			Timeout: e.FetchTimeout,
		}, logger), nil
	case OCIRegistry:
		cfg := e.OCI
		cfg.WorkDir = e.WorkDir

		return oci.New(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown dataset registry %q", e.Registry)
	}
}

// credential is the secret presented to the selected registry.
func (e *Env) credential() string {
	if e.Registry != OCIRegistry {
		return e.Credential
	}
	if e.OCIToken != "" {
		return e.OCIToken
	}

	return e.OCI.Password
}

// tracerProvider returns a noop provider unless an OTLP endpoint is configured.
// The returned function flushes and stops the provider.
func (e *Env) tracerProvider(ctx context.Context, logger *slog.Logger) (trace.TracerProvider, func(), error) {
	if e.OTELURL == (url.URL{}) {
		return noop.NewTracerProvider(), func() {}, nil
	}

	tp, err := tracing.NewProvider(ctx, svcName, e.OTELURL, e.InstanceID, e.TraceRatio)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize opentelemetry: %w", err)
	}

	return tp, func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("error shutting down tracer provider", slog.Any("error", err))
		}
	}, nil
}
