package cli

import (
	"github.com/absmach/detlab/pkg/sdk"
	"github.com/spf13/cobra"
)

var ssdk sdk.SDK

func SetSDK(s sdk.SDK) {
	ssdk = s
}

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [outcome <variant>|outcomes|health]",
		Short: "Status of a running training",
		Long: `Query the status server of a training started with --status-addr.

Examples:
  # Show the current run
  detlab status --status-url http://localhost:9090

  # Show the outcome of the medium variant
  detlab status outcome m

  # List recorded outcomes
  detlab status outcomes --offset 0 --limit 10`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			j, err := ssdk.Job()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, j)
		},
	}

	outcomeCmd := &cobra.Command{
		Use:   "outcome <variant>",
		Short: "View variant outcome",
		Long:  `View the outcome of one model variant of the current run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			o, err := ssdk.Outcome(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, o)
		},
	}

	var offset, limit uint64
	outcomesCmd := &cobra.Command{
		Use:   "outcomes",
		Short: "List variant outcomes",
		Long:  `List the recorded outcomes of the current run in the order they were recorded.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := ssdk.Outcomes(offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}
	outcomesCmd.Flags().Uint64Var(&offset, "offset", 0, "Number of outcomes to skip")
	outcomesCmd.Flags().Uint64Var(&limit, "limit", 10, "Maximum number of outcomes to list")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check status server",
		Long:  `Check that the status server of a running training is reachable.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if _, err := ssdk.Health(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.AddCommand(outcomeCmd, outcomesCmd, healthCmd)

	return cmd
}
