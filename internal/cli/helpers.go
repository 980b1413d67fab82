package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/daemon"
	"github.com/lifelock-app/lifelock/internal/domain"
)

// withService opens the configured daemon for the duration of fn.
func withService(ctx context.Context, fn func(ctx context.Context, svc *rewards.Service) error) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	if !viper.GetBool("verbose") {
		cfg.Logging.Level = "warn"
	}
	d, err := daemon.NewWithConfig(ctx, cfg, daemon.NewLogger(cfg.Logging, os.Stderr))
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d.Rewards)
}

func userID() string {
	return strings.TrimSpace(viper.GetString("user"))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// ─── Task Flags ─────────────────────────────────────────────────────────────

// taskFlags describes a task on the command line.
type taskFlags struct {
	id          string
	description string
	priority    string
	workType    string
	difficulty  string
	duration    int
	complexity  int
	learning    int
	strategic   int
	aiAnalyzed  bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "task id")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "CRITICAL, URGENT, HIGH, MEDIUM or LOW (inferred when empty)")
	cmd.Flags().StringVarP(&f.workType, "work-type", "w", "", "DEEP, MORNING or LIGHT (default LIGHT)")
	cmd.Flags().StringVar(&f.difficulty, "difficulty", "", "TRIVIAL, EASY, MODERATE, HARD or EXPERT")
	cmd.Flags().IntVar(&f.duration, "minutes", 0, "estimated duration in minutes")
	cmd.Flags().IntVar(&f.complexity, "complexity", 0, "complexity score 1-10")
	cmd.Flags().IntVar(&f.learning, "learning", 0, "learning value 1-10")
	cmd.Flags().IntVar(&f.strategic, "strategic", 0, "strategic importance 1-10")
	cmd.Flags().BoolVar(&f.aiAnalyzed, "ai-analyzed", false, "attributes come from an external analysis")
}

// input builds the scoring input for title. Unset numeric flags stay nil so
// the engine infers them.
func (f *taskFlags) input(cmd *cobra.Command, title string) (domain.TaskScoringInput, error) {
	task := domain.TaskScoringInput{
		ID:          f.id,
		Title:       title,
		Description: f.description,
		AIAnalyzed:  f.aiAnalyzed,
	}
	if f.priority != "" {
		p, ok := domain.ParsePriority(f.priority)
		if !ok {
			return task, fmt.Errorf("unknown priority %q", f.priority)
		}
		task.Priority = p
	}
	if f.workType != "" {
		wt, ok := domain.ParseWorkType(f.workType)
		if !ok {
			return task, fmt.Errorf("unknown work type %q", f.workType)
		}
		task.WorkType = wt
	}
	if f.difficulty != "" {
		d, ok := domain.ParseDifficulty(f.difficulty)
		if !ok {
			return task, fmt.Errorf("unknown difficulty %q", f.difficulty)
		}
		task.Difficulty = d
	}
	if cmd.Flags().Changed("minutes") {
		task.EstimatedDurationMinutes = domain.Ptr(f.duration)
	}
	if cmd.Flags().Changed("complexity") {
		task.Complexity = domain.Ptr(f.complexity)
	}
	if cmd.Flags().Changed("learning") {
		task.LearningValue = domain.Ptr(f.learning)
	}
	if cmd.Flags().Changed("strategic") {
		task.StrategicImportance = domain.Ptr(f.strategic)
	}
	return task, nil
}

func titleArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
