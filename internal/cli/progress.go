package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
)

func init() {
	previewTask.register(previewCmd)
	previewCmd.Flags().BoolVar(&previewFocus, "focus", false, "preview as completed in a focus session")
	previewCmd.Flags().BoolVar(&previewContextual, "contextual", false, "show now, morning, focus and streak variants")

	completeTask.register(completeCmd)
	completeCmd.Flags().BoolVar(&completeFocus, "focus", false, "completed in a focus session")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	notificationsCmd.Flags().Int64Var(&notificationsMark, "mark-shown", 0, "mark a notification as shown")

	rootCmd.AddCommand(previewCmd, completeCmd, statsCmd, achievementsCmd, challengeCmd, historyCmd, notificationsCmd)
}

var (
	previewTask       taskFlags
	previewFocus      bool
	previewContextual bool
	completeTask      taskFlags
	completeFocus     bool
	historyLimit      int
	notificationsMark int64
)

var previewCmd = &cobra.Command{
	Use:   "preview <title>",
	Short: "Preview the XP a task would earn right now",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := previewTask.input(cmd, titleArg(args))
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			out := cmd.OutOrStdout()
			if previewContextual {
				p, err := svc.ContextualPreviews(ctx, userID(), task)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out, p)
				}
				tw := newTable(out)
				tw.AppendHeader(table.Row{"Variant", "XP", "Range"})
				for _, v := range []struct {
					name string
					p    domain.XPPreview
				}{{"now", p.Now}, {"morning", p.Morning}, {"in focus", p.InFocus}, {"with streak", p.WithStreak}} {
					tw.AppendRow(table.Row{v.name, v.p.EstimatedXP, fmt.Sprintf("%d-%d", v.p.MinXP, v.p.MaxXP)})
				}
				tw.Render()
				return nil
			}

			p, err := svc.Preview(ctx, userID(), task, previewFocus)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(out, p)
			}
			fmt.Fprintf(out, "%d XP (range %d-%d)\n", p.EstimatedXP, p.MinXP, p.MaxXP)
			fmt.Fprintln(out, p.MotivationMessage)
			fmt.Fprintln(out, p.PriorityReason)
			for _, b := range p.BonusOpportunities {
				fmt.Fprintf(out, "  + %s\n", b)
			}
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <title>",
	Short: "Record a completed task and award XP",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := completeTask.input(cmd, titleArg(args))
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			o, err := svc.CompleteTask(ctx, userID(), task, completeFocus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, o)
			}
			fmt.Fprintf(out, "+%d XP  (total %d, level %d)\n", o.TotalXPAwarded, o.Stats.TotalXP, o.Stats.Level)
			if o.LeveledUp {
				fmt.Fprintf(out, "Level up! %d -> %d\n", o.PreviousLevel, o.Stats.Level)
			}
			if o.StreakExtended {
				fmt.Fprintf(out, "Streak: %d days\n", o.Stats.CurrentStreak)
			}
			if o.FreezeUsed {
				fmt.Fprintln(out, "Streak freeze used")
			}
			if o.ChallengeCompleted && o.Challenge != nil {
				fmt.Fprintf(out, "Challenge complete: %s (+%d XP)\n", o.Challenge.Name, o.ChallengeBonusXP)
			}
			if o.PerfectDay {
				fmt.Fprintln(out, "Perfect day!")
			}
			for _, a := range o.NewAchievements {
				fmt.Fprintf(out, "Achievement unlocked: %s %s (+%d pts)\n", a.Emoji, a.Name, a.Points)
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			s, err := svc.Stats(ctx, userID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, s)
			}
			tw := newTable(out)
			tw.AppendRows([]table.Row{
				{"User", s.UserID},
				{"Level", fmt.Sprintf("%d (%d / %d XP)", s.Level, s.XPInCurrentLevel, s.XPForNextLevel)},
				{"Total XP", s.TotalXP},
				{"Today", fmt.Sprintf("%d tasks, %d XP", s.TasksCompletedToday, s.XPEarnedToday)},
				{"Streak", fmt.Sprintf("%d days (longest %d)", s.CurrentStreak, s.LongestStreak)},
				{"Tasks", s.TotalTasksCompleted},
				{"Perfect days", s.PerfectDays},
				{"Achievements", fmt.Sprintf("%d (%d pts)", len(s.UnlockedAchievements), s.TotalAchievementPoints)},
				{"Max combo", s.MaxCombo},
			})
			tw.Render()
			return nil
		})
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List achievements with unlock progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			board, err := svc.Achievements(ctx, userID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, board)
			}
			tw := newTable(out)
			tw.AppendHeader(table.Row{"", "Name", "Rarity", "Points", "Progress"})
			for _, a := range board {
				mark := " "
				if a.Unlocked {
					mark = "x"
				}
				tw.AppendRow(table.Row{mark, a.Emoji + " " + a.Name, a.Rarity, a.Points,
					fmt.Sprintf("%d/%d", a.Progress.Current, a.Progress.Max)})
			}
			tw.Render()
			return nil
		})
	},
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Show today's challenge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			c, err := svc.TodayChallenge(ctx, userID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, c)
			}
			status := "in progress"
			if c.Completed {
				status = "completed"
			}
			fmt.Fprintf(out, "%s %s (%s)\n", c.Emoji, c.Name, status)
			fmt.Fprintln(out, c.Description)
			fmt.Fprintf(out, "Progress: %d / %d  Reward: %d XP\n", c.CurrentProgress, c.TargetValue, c.XPReward)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent XP ledger entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			events, err := svc.History(ctx, userID(), historyLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No XP earned yet. Run 'lifelock complete <task>' to get started.")
				return nil
			}
			tw := newTable(out)
			tw.AppendHeader(table.Row{"When", "Source", "Ref", "XP"})
			for _, e := range events {
				tw.AppendRow(table.Row{e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Source, e.SourceID, e.Amount})
			}
			tw.Render()
			return nil
		})
	},
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "List pending notifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *rewards.Service) error {
			out := cmd.OutOrStdout()
			if notificationsMark > 0 {
				if err := svc.MarkNotificationShown(ctx, userID(), notificationsMark); err != nil {
					return err
				}
				fmt.Fprintf(out, "Marked %d as shown\n", notificationsMark)
				return nil
			}
			list, err := svc.Notifications(ctx, userID(), 0)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(out, list)
			}
			for _, n := range list {
				fmt.Fprintf(out, "[%d] %s  %s\n", n.ID, n.Title, strings.TrimSpace(n.Body))
			}
			return nil
		})
	},
}
