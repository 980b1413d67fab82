// Package engagement implements the LifeLock scoring engine: importance
// detection, XP calculation, the level curve, achievements, daily challenges
// and previews. Every function here is pure; callers own persistence.
package engagement

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// Tables holds every designer-tunable constant of the XP formula.
// A zero-valued field in a YAML overlay keeps the default.
type Tables struct {
	WorkTypeBase        map[domain.WorkType]int     `yaml:"work_type_base"`
	DifficultyBonus     map[domain.Difficulty]int   `yaml:"difficulty_bonus"`
	PriorityMultipliers map[domain.Priority]float64 `yaml:"priority_multipliers"`

	// Duration bonus = DurationScale * log2(1 + min(minutes, cap) / unit).
	DurationScale       float64 `yaml:"duration_scale"`
	DurationUnitMinutes int     `yaml:"duration_unit_minutes"`
	DurationCapMinutes  int     `yaml:"duration_cap_minutes"`

	ComplexityWeight float64 `yaml:"complexity_weight"`
	StrategicWeight  float64 `yaml:"strategic_weight"`

	LearningPerPoint int `yaml:"learning_per_point"`
	LearningCap      int `yaml:"learning_cap"`

	// Streak bonus = StreakBonusMax * (1 - e^(-days / StreakSaturationDays)).
	StreakBonusMax       int     `yaml:"streak_bonus_max"`
	StreakSaturationDays float64 `yaml:"streak_saturation_days"`

	ComboStep   float64       `yaml:"combo_step"`
	ComboCap    float64       `yaml:"combo_cap"`
	ComboWindow time.Duration `yaml:"combo_window"`

	MorningBonusPct int `yaml:"morning_bonus_pct"`
	FocusBonusPct   int `yaml:"focus_bonus_pct"`

	PerfectDayTarget int `yaml:"perfect_day_target"`

	Confidence ConfidenceTable `yaml:"confidence"`
}

// ConfidenceTable tunes the confidence score.
type ConfidenceTable struct {
	Baseline          int `yaml:"baseline"`
	PriorityPenalty   int `yaml:"priority_penalty"`
	DifficultyPenalty int `yaml:"difficulty_penalty"`
	WorkTypePenalty   int `yaml:"work_type_penalty"`
	ScorePenalty      int `yaml:"score_penalty"` // each of complexity, learning, strategic
	DurationPenalty   int `yaml:"duration_penalty"`
	KeywordBoost      int `yaml:"keyword_boost"` // per matched lexicon
	KeywordBoostCap   int `yaml:"keyword_boost_cap"`
	AIAnalyzedFloor   int `yaml:"ai_analyzed_floor"`
	InferredFloor     int `yaml:"inferred_floor"` // lowest score once text inference ran
}

// DefaultTables returns the calibrated defaults.
// With scores at 5 and no duration: EASY/LIGHT/LOW = 43,
// MODERATE/DEEP/MEDIUM = 80, EXPERT/DEEP/CRITICAL = 215.
func DefaultTables() Tables {
	return Tables{
		WorkTypeBase: map[domain.WorkType]int{
			domain.WorkDeep:    40,
			domain.WorkMorning: 30,
			domain.WorkLight:   20,
		},
		DifficultyBonus: map[domain.Difficulty]int{
			domain.DifficultyTrivial:  0,
			domain.DifficultyEasy:     5,
			domain.DifficultyModerate: 15,
			domain.DifficultyHard:     30,
			domain.DifficultyExpert:   50,
		},
		PriorityMultipliers: map[domain.Priority]float64{
			domain.PriorityCritical: 2.0,
			domain.PriorityUrgent:   1.5,
			domain.PriorityHigh:     1.2,
			domain.PriorityMedium:   1.0,
			domain.PriorityLow:      0.8,
		},
		DurationScale:        10,
		DurationUnitMinutes:  15,
		DurationCapMinutes:   480,
		ComplexityWeight:     1,
		StrategicWeight:      1,
		LearningPerPoint:     3,
		LearningCap:          30,
		StreakBonusMax:       25,
		StreakSaturationDays: 7,
		ComboStep:            0.1,
		ComboCap:             0.5,
		ComboWindow:          30 * time.Minute,
		MorningBonusPct:      10,
		FocusBonusPct:        15,
		PerfectDayTarget:     5,
		Confidence: ConfidenceTable{
			Baseline:          100,
			PriorityPenalty:   10,
			DifficultyPenalty: 8,
			WorkTypePenalty:   5,
			ScorePenalty:      6,
			DurationPenalty:   4,
			KeywordBoost:      5,
			KeywordBoostCap:   15,
			AIAnalyzedFloor:   95,
			InferredFloor:     60,
		},
	}
}

// LoadTables overlays the YAML file at path on DefaultTables and validates
// the result.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables overlays YAML data on DefaultTables and validates the result.
func ParseTables(data []byte) (Tables, error) {
	var overlay Tables
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Tables{}, fmt.Errorf("parse tables: %w", err)
	}
	t := DefaultTables()
	t.merge(overlay)
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Validate checks the tables for values that would break the formula.
func (t Tables) Validate() error {
	for _, w := range []domain.WorkType{domain.WorkDeep, domain.WorkLight, domain.WorkMorning} {
		if t.WorkTypeBase[w] < 0 {
			return fmt.Errorf("%w: work_type_base[%s] is negative", domain.ErrInvalidTables, w)
		}
	}
	for d, v := range t.DifficultyBonus {
		if v < 0 {
			return fmt.Errorf("%w: difficulty_bonus[%s] is negative", domain.ErrInvalidTables, d)
		}
	}
	prev := 0.0
	for _, p := range domain.AllPriorities() {
		m := t.PriorityMultipliers[p]
		if m <= 0 {
			return fmt.Errorf("%w: priority_multipliers[%s] must be positive", domain.ErrInvalidTables, p)
		}
		if m < prev {
			return fmt.Errorf("%w: priority_multipliers[%s] below a lower priority", domain.ErrInvalidTables, p)
		}
		prev = m
	}
	switch {
	case t.DurationUnitMinutes <= 0:
		return fmt.Errorf("%w: duration_unit_minutes must be positive", domain.ErrInvalidTables)
	case t.StreakSaturationDays <= 0:
		return fmt.Errorf("%w: streak_saturation_days must be positive", domain.ErrInvalidTables)
	case t.LearningCap < 0 || t.StreakBonusMax < 0 || t.ComboCap < 0 || t.ComboStep < 0:
		return fmt.Errorf("%w: caps and steps must not be negative", domain.ErrInvalidTables)
	case t.MorningBonusPct < 0 || t.FocusBonusPct < 0:
		return fmt.Errorf("%w: context bonuses must not be negative", domain.ErrInvalidTables)
	case t.PerfectDayTarget <= 0:
		return fmt.Errorf("%w: perfect_day_target must be positive", domain.ErrInvalidTables)
	}
	return nil
}

// merge copies every non-zero field of o into t.
func (t *Tables) merge(o Tables) {
	for k, v := range o.WorkTypeBase {
		t.WorkTypeBase[k] = v
	}
	for k, v := range o.DifficultyBonus {
		t.DifficultyBonus[k] = v
	}
	for k, v := range o.PriorityMultipliers {
		t.PriorityMultipliers[k] = v
	}
	setFloat(&t.DurationScale, o.DurationScale)
	setInt(&t.DurationUnitMinutes, o.DurationUnitMinutes)
	setInt(&t.DurationCapMinutes, o.DurationCapMinutes)
	setFloat(&t.ComplexityWeight, o.ComplexityWeight)
	setFloat(&t.StrategicWeight, o.StrategicWeight)
	setInt(&t.LearningPerPoint, o.LearningPerPoint)
	setInt(&t.LearningCap, o.LearningCap)
	setInt(&t.StreakBonusMax, o.StreakBonusMax)
	setFloat(&t.StreakSaturationDays, o.StreakSaturationDays)
	setFloat(&t.ComboStep, o.ComboStep)
	setFloat(&t.ComboCap, o.ComboCap)
	if o.ComboWindow > 0 {
		t.ComboWindow = o.ComboWindow
	}
	setInt(&t.MorningBonusPct, o.MorningBonusPct)
	setInt(&t.FocusBonusPct, o.FocusBonusPct)
	setInt(&t.PerfectDayTarget, o.PerfectDayTarget)

	c := o.Confidence
	setInt(&t.Confidence.Baseline, c.Baseline)
	setInt(&t.Confidence.PriorityPenalty, c.PriorityPenalty)
	setInt(&t.Confidence.DifficultyPenalty, c.DifficultyPenalty)
	setInt(&t.Confidence.WorkTypePenalty, c.WorkTypePenalty)
	setInt(&t.Confidence.ScorePenalty, c.ScorePenalty)
	setInt(&t.Confidence.DurationPenalty, c.DurationPenalty)
	setInt(&t.Confidence.KeywordBoost, c.KeywordBoost)
	setInt(&t.Confidence.KeywordBoostCap, c.KeywordBoostCap)
	setInt(&t.Confidence.AIAnalyzedFloor, c.AIAnalyzedFloor)
	setInt(&t.Confidence.InferredFloor, c.InferredFloor)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
