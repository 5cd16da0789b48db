package cli

import (
	"path/filepath"

	"github.com/absmach/detlab/dataset"
	smqerrors "github.com/absmach/supermq/pkg/errors"
	"github.com/spf13/cobra"
)

type datasetSummary struct {
	Location string             `json:"location"`
	Dataset  dataset.Descriptor `json:"descriptor"`
}

func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset [resolve|inspect]",
		Short: "Dataset management",
		Long:  `Resolve the training dataset locally or from the registry, and inspect its descriptor.`,
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve dataset",
		Long: `Use ./dataset when it holds a data.yaml, otherwise download the configured dataset version.

Examples:
  # Download with the Roboflow API key from the environment
  ROBOFLOW_API_KEY=... detlab dataset resolve --profile mps`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			logger := newLogger(env.LogLevel)
			cfg, err := env.runConfig()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			loc, err := resolveDataset(cmd.Context(), cfg, logger)
			switch {
			case smqerrors.Contains(err, dataset.ErrNoDatasetAvailable):
				printDatasetGuidance(*cmd, cfg, err)

				return
			case err != nil:
				logErrorCmd(*cmd, err)

				return
			}

			d, err := dataset.ReadDescriptor(loc)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, datasetSummary{Location: loc.String(), Dataset: d})
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Inspect dataset",
		Long:  `Print the splits and class names of a dataset directory. Defaults to ./dataset under the work directory.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			loc := dataset.Location(filepath.Join(env.WorkDir, dataset.LocalDir))
			if len(args) == 1 {
				loc = dataset.Location(args[0])
			}

			d, err := dataset.ReadDescriptor(loc)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, datasetSummary{Location: loc.String(), Dataset: d})
		},
	}

	cmd.AddCommand(resolveCmd, inspectCmd)

	return cmd
}
