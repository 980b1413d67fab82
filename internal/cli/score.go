package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/daemon"
	"github.com/lifelock-app/lifelock/internal/domain"
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "task description")
	scoreTask.register(scoreCmd)
	scoreCmd.Flags().IntVar(&scoreCtx.CurrentStreakDays, "streak", 0, "current streak in days")
	scoreCmd.Flags().IntVar(&scoreCtx.TasksCompletedToday, "today", 0, "tasks already completed today")
	scoreCmd.Flags().IntVar(&scoreCtx.UserLevel, "level", 1, "user level")
	scoreCmd.Flags().IntVar(&scoreCtx.ComboCount, "combo", 0, "current combo count")
	scoreCmd.Flags().StringVar(&scoreTime, "time", "", "time of day: morning, afternoon, evening or night")
	scoreCmd.Flags().BoolVar(&scoreCtx.CompletedInFocusSession, "focus", false, "completed in a focus session")

	rootCmd.AddCommand(analyzeCmd, scoreCmd, levelCmd)
}

var (
	analyzeDescription string
	scoreTask          taskFlags
	scoreCtx           domain.UserModifierContext
	scoreTime          string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <title>",
	Short: "Infer priority and scores from a task's text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := engagement.AnalyzeImportance(titleArg(args), analyzeDescription)
		out := cmd.OutOrStdout()
		if viper.GetBool("json") {
			return printJSON(out, a)
		}
		fmt.Fprintf(out, "Priority:   %s\n", a.Priority)
		fmt.Fprintf(out, "Complexity: %d  Learning: %d  Strategic: %d\n",
			a.Complexity, a.LearningValue, a.StrategicImportance)
		for _, r := range a.Reasoning {
			fmt.Fprintf(out, "  - %s\n", r)
		}
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <title>",
	Short: "Calculate XP for a task under an explicit context",
	Long:  `Calculate XP without touching stored progress. Context flags describe the user.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := scoreTask.input(cmd, titleArg(args))
		if err != nil {
			return err
		}
		mctx := scoreCtx
		mctx.UserLevel = max(1, mctx.UserLevel)
		mctx.RecentCompletionWithinComboWindow = mctx.ComboCount > 0
		if scoreTime != "" {
			mctx.TimeOfDay = domain.TimeOfDay(strings.ToLower(scoreTime))
		}

		cfg, err := daemon.LoadConfig()
		if err != nil {
			return err
		}
		calc, err := daemon.NewCalculator(cfg.Engine)
		if err != nil {
			return err
		}

		res := calc.CalculateIntelligentXP(task, mctx)
		out := cmd.OutOrStdout()
		if viper.GetBool("json") {
			return printJSON(out, res)
		}
		fmt.Fprintf(out, "%d XP (%s, confidence %d%%)\n", res.FinalXP, res.Priority, res.ConfidenceScore)
		for _, line := range res.Breakdown {
			fmt.Fprintf(out, "  %s\n", line)
		}
		return nil
	},
}

var levelCmd = &cobra.Command{
	Use:   "level <total-xp>",
	Short: "Show the level reached with a given XP total",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var xp int
		if _, err := fmt.Sscan(args[0], &xp); err != nil || xp < 0 {
			return fmt.Errorf("total xp must be a non-negative integer, got %q", args[0])
		}
		info := engagement.CalculateLevel(xp)
		out := cmd.OutOrStdout()
		if viper.GetBool("json") {
			return printJSON(out, info)
		}
		if info.XPForNextLevel == 0 {
			fmt.Fprintf(out, "Level %d (max)\n", info.Level)
			return nil
		}
		fmt.Fprintf(out, "Level %d  %d / %d XP  (%.1f%%)\n",
			info.Level, info.XPInLevel, info.XPForNextLevel, engagement.LevelProgressPct(xp))
		if unlocks := engagement.UnlocksForLevel(info.Level + 1); len(unlocks) > 0 {
			fmt.Fprintf(out, "Next level unlocks: %s\n", strings.Join(unlocks, ", "))
		}
		return nil
	},
}
