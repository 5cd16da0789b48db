package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/absmach/detlab"
	"github.com/absmach/detlab/driver"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const defConfigPath = "detlab.toml"

var (
	errEmptyValue    = errors.New("value is required")
	errPositiveValue = errors.New("must be a positive integer")
)

func NewInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long:  `Interactively build a TOML configuration starting from a built-in profile.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if _, err := os.Stat(output); err == nil && !force {
				logErrorCmd(*cmd, fmt.Errorf("%s already exists, use --force to overwrite", output))

				return
			}

			cfg, err := configForm()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if err := cfg.Save(output); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", defConfigPath, "Configuration file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func configForm() (detlab.Config, error) {
	base := detlab.DefaultProfile
	if err := huh.NewSelect[string]().
		Title("Start from profile").
		Options(huh.NewOptions(detlab.Profiles()...)...).
		Value(&base).
		Run(); err != nil {
		return detlab.Config{}, err
	}

	cfg, err := detlab.Profile(base)
	if err != nil {
		return detlab.Config{}, err
	}

	var (
		version = strconv.Itoa(cfg.Dataset.Version)
		epochs  = strconv.Itoa(cfg.Train.Epochs)
		policy  = string(cfg.Run.OnTrainFailure)
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Dataset workspace").Value(&cfg.Dataset.Workspace).Validate(required),
			huh.NewInput().Title("Dataset project").Value(&cfg.Dataset.Project).Validate(required),
			huh.NewInput().Title("Dataset version").Value(&version).Validate(positive),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Model variants").
				Options(huh.NewOptions("n", "s", "m", "l", "x")...).
				Value(&cfg.Run.Variants),
			huh.NewInput().Title("Model family").Value(&cfg.Run.ModelPrefix).Validate(required),
			huh.NewInput().Title("Epochs").Value(&epochs).Validate(positive),
			huh.NewInput().Title("Device").Description("GPU index, cpu or mps").Value(&cfg.Train.Device),
			huh.NewSelect[string]().
				Title("When training a variant fails").
				Options(
					huh.NewOption("Abort the remaining variants", string(driver.AbortOnTrainFailure)),
					huh.NewOption("Skip it and continue", string(driver.SkipOnTrainFailure)),
				).
				Value(&policy),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(huh.NewOptions("coreml", "onnx", "tflite", "torchscript", "engine")...).
				Value(&cfg.Export.Format),
			huh.NewConfirm().Title("Embed NMS in the exported model").Value(&cfg.Export.NMS),
			huh.NewConfirm().Title("Enable augmentation").Value(&cfg.Augment.Enabled),
		),
	)
	if err := form.Run(); err != nil {
		return detlab.Config{}, err
	}

	cfg.Profile = base
	cfg.Dataset.Version, _ = strconv.Atoi(version)
	cfg.Train.Epochs, _ = strconv.Atoi(epochs)
	cfg.Run.OnTrainFailure = driver.TrainFailurePolicy(policy)

	if err := cfg.Validate(); err != nil {
		return detlab.Config{}, err
	}

	return cfg, nil
}

func required(s string) error {
	if s == "" {
		return errEmptyValue
	}

	return nil
}

func positive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errPositiveValue
	}

	return nil
}
