package cli

import (
	"github.com/absmach/detlab"
	"github.com/absmach/detlab/task"
	"github.com/spf13/cobra"
)

// plannedVariant is what a run would do for one variant.
type plannedVariant struct {
	Variant  task.Variant `json:"variant"`
	Batch    int          `json:"batch"`
	Model    string       `json:"model"`
	RunDir   string       `json:"run_dir"`
	Artifact string       `json:"artifact"`
}

func plan(cfg detlab.Config) []plannedVariant {
	naming := cfg.Naming()
	batch := cfg.BatchConfig()

	out := make([]plannedVariant, 0, len(cfg.Run.Variants))
	for _, v := range cfg.Variants() {
		out = append(out, plannedVariant{
			Variant:  v,
			Batch:    batch.BatchSize(v, cfg.Run.DefaultBatch),
			Model:    naming.Weights(v),
			RunDir:   naming.RunDir(v),
			Artifact: naming.ArtifactPath(v, cfg.Export.Format),
		})
	}

	return out
}

func NewProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles [show <name>]",
		Short: "Built-in training profiles",
		Long:  `List the built-in training profiles, or show the configuration and per-variant plan of one.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			logJSONCmd(*cmd, detlab.Profiles())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show profile",
		Long:  `Show a built-in profile and the batch size, weights and output paths of each variant.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := detlab.Profile(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cfg, plan(cfg))
		},
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the plan of the active configuration",
		Long:  `Show what train would do for each variant with the current --config or --profile.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := env.runConfig()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, plan(cfg))
		},
	}

	cmd.AddCommand(showCmd, planCmd)

	return cmd
}
