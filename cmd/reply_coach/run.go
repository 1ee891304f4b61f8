package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/reply-coach/internal/config"
	"github.com/jonathan/reply-coach/internal/observability"
	"github.com/jonathan/reply-coach/internal/replying"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Generate one coached reply and exit",
	Long: `Runs the full pipeline once for the given comment and/or draft reply:
tag extraction -> strategy matching -> reply generation, plus the optional
rebuttal and evaluation stages.

Configuration comes from the environment (.env is honored), optionally a
JSON config file via --config, with flags taking priority.`,
	RunE: runOnce,
}

var (
	runConfigPath string
	runComment    string
	runDraft      string
	runRebuttal   bool
	runEvaluate   bool
	runVerbose    bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVarP(&runComment, "comment", "c", "", "Comment to respond to")
	runCommand.Flags().StringVarP(&runDraft, "draft", "d", "", "Draft reply to improve")
	runCommand.Flags().BoolVar(&runRebuttal, "rebuttal", false, "Also generate the likely rebuttal to the suggested reply")
	runCommand.Flags().BoolVar(&runEvaluate, "evaluate", false, "Also self-evaluate the suggested reply")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print tags, strategies, and stage details")

	rootCmd.AddCommand(runCommand)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd, runConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("rebuttal") {
		cfg.EnableRebuttal = runRebuttal
	}
	if cmd.Flags().Changed("evaluate") {
		cfg.EnableEvaluation = runEvaluate
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	input := replying.Input{Comment: runComment, Draft: runDraft}
	if err := input.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	pipe, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := pipe.Execute(ctx, uuid.New(), 1, input, nil)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintRun(run)
		return nil
	}

	if run.Reply.NeedsClarification {
		fmt.Println(run.Reply.FollowUpQuestion)
		return nil
	}
	fmt.Println(run.Reply.Message)
	if run.Rebuttal != "" {
		fmt.Printf("\nLikely rebuttal: %s\n", run.Rebuttal)
	}
	if run.Evaluation != nil && !run.Evaluation.Failed() && run.Evaluation.ConfidenceScore != nil {
		fmt.Printf("\nConfidence: %.1f / 10\n", *run.Evaluation.ConfidenceScore)
	}
	return nil
}

// loadConfig loads env config, overlays the optional config file, and
// leaves flag overrides to the caller.
func loadConfig(_ *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	return cfg, nil
}
