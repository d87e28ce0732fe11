/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/spf13/cobra"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// weeksCmd 打印当前周和可提交的周
var weeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Show the current week and the weeks open for submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		loc, err := cfg.Week.Location()
		if err != nil {
			return err
		}
		calc := week.NewCalculator(
			week.WithLocation(loc),
			week.WithMaxWeeksAhead(cfg.Week.MaxWeeksAhead),
			week.WithSubmissionCutoff(cfg.Week.SubmissionCutoff),
		)
		printWeeks(cmd.OutOrStdout(), calc)
		return nil
	},
}

func printWeeks(w io.Writer, calc *week.Calculator) {
	current := calc.CurrentWeek()
	state := red("closed")
	if calc.IsSubmissionOpen(current) {
		state = green("open")
	}
	fmt.Fprintf(w, "%s %s  %s %s\n", bold("Current week:"), cyan(current.String()), dim("submission"), state)
	fmt.Fprintf(w, "%s %s\n\n", bold("Deadline:"), calc.Deadline(current).Format("Mon Jan 2 15:04 MST"))

	fmt.Fprintln(w, bold("Open for submission:"))
	for opt := range calc.AvailableWeeksForSubmission() {
		fmt.Fprintf(w, "  %s  %s\n", cyan(opt.Value), opt.Label)
	}
}

func init() {
	rootCmd.AddCommand(weeksCmd)
}
