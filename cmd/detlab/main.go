package main

import (
	"log"
	"os"
	"time"

	"github.com/absmach/detlab/cli"
	"github.com/absmach/detlab/pkg/sdk"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	pathEnv       = ".env"
	statusTimeout = 10 * time.Second
)

func main() {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := cli.Env{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	cli.SetEnv(&cfg)

	rootCmd := &cobra.Command{
		Use:   "detlab",
		Short: "Object detection training driver",
		Long: `detlab resolves a detection dataset and trains a series of YOLO model variants on it,
exporting each trained model for on-device inference.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			cli.SetSDK(sdk.NewSDK(sdk.Config{
				StatusURL:       cfg.StatusURL,
				TLSVerification: true,
				Timeout:         statusTimeout,
			}))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "TOML configuration file, overrides --profile")
	flags.StringVarP(&cfg.Profile, "profile", "p", cfg.Profile, "Built-in profile (see detlab profiles)")
	flags.StringVarP(&cfg.WorkDir, "work-dir", "w", cfg.WorkDir, "Directory holding ./dataset and the training runs")
	flags.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Registry, "registry", cfg.Registry, "Dataset registry to fetch from (roboflow, oci)")
	flags.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "Serve run status over HTTP on this address while training")
	flags.StringVar(&cfg.StatusURL, "status-url", cfg.StatusURL, "Status server queried by detlab status")

	rootCmd.AddCommand(
		cli.NewTrainCmd(),
		cli.NewDatasetCmd(),
		cli.NewProfilesCmd(),
		cli.NewInitCmd(),
		cli.NewStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
