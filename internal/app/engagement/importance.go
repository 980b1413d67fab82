package engagement

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// ─── Keyword Lexicons ───────────────────────────────────────────────────────
// Lexicons are disjoint and never mutated. Order here is the order reasoning
// entries are emitted.

type lexicon struct {
	label string
	words map[string]struct{}
}

func newLexicon(label string, words ...string) lexicon {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return lexicon{label: label, words: set}
}

// urgencyTier maps each urgency word to the priority it escalates to.
var urgencyTier = map[string]domain.Priority{
	"critical": domain.PriorityCritical, "emergency": domain.PriorityCritical,
	"outage": domain.PriorityCritical, "asap": domain.PriorityCritical,
	"immediately": domain.PriorityCritical, "blocker": domain.PriorityCritical,
	"urgent": domain.PriorityUrgent, "deadline": domain.PriorityUrgent,
	"overdue": domain.PriorityUrgent, "due": domain.PriorityUrgent,
	"today": domain.PriorityUrgent, "tonight": domain.PriorityUrgent,
}

var (
	urgencyWords   = newLexicon("Urgency", keys(urgencyTier)...)
	importantWords = newLexicon("Importance", "important", "priority", "essential", "key", "must", "client", "customer", "boss")
	learningWords  = newLexicon("Learning", "learn", "learning", "study", "research", "course", "tutorial", "read", "practice", "explore", "understand", "investigate")
	technicalWords = newLexicon("Technical", "fix", "bug", "server", "deploy", "database", "refactor", "architecture", "debug", "implement", "migrate", "migration", "optimize", "security", "api", "algorithm", "integration", "infrastructure")
	simpleWords    = newLexicon("Low-effort", "simple", "quick", "easy", "small", "trivial", "tiny")
	strategicWords = newLexicon("Strategic", "strategy", "strategic", "plan", "planning", "roadmap", "goal", "goals", "vision", "long-term", "career", "growth", "invest")
	routineWords   = newLexicon("Routine", "minor", "routine", "chore", "errand", "email", "cleanup", "tidy", "someday", "optional", "whenever", "later")
)

// AnalyzeImportance infers priority and quality scores from free text.
// Urgency outranks routine signals. Without any signal the result is
// MEDIUM/5/5/5 with no reasoning.
func AnalyzeImportance(title, description string) domain.ImportanceAnalysis {
	tokens := tokenize(title + " " + description)
	a := domain.ImportanceAnalysis{
		Priority:            domain.PriorityMedium,
		Complexity:          5,
		LearningValue:       5,
		StrategicImportance: 5,
		Reasoning:           []string{},
	}

	urgent := urgencyWords.match(tokens)
	if len(urgent) > 0 {
		a.Priority = domain.PriorityUrgent
		for _, w := range urgent {
			if urgencyTier[w] == domain.PriorityCritical {
				a.Priority = domain.PriorityCritical
			}
		}
		a.Reasoning = append(a.Reasoning, reason(urgencyWords, urgent, fmt.Sprintf("%s priority", a.Priority)))
	}

	important := importantWords.match(tokens)
	if len(important) > 0 {
		outcome := "held at " + string(a.Priority)
		if len(urgent) == 0 {
			a.Priority = domain.PriorityHigh
			outcome = "HIGH priority"
		}
		a.Reasoning = append(a.Reasoning, reason(importantWords, important, outcome))
	}

	if learn := learningWords.match(tokens); len(learn) > 0 {
		a.LearningValue = min(10, 7+len(learn))
		a.Reasoning = append(a.Reasoning, reason(learningWords, learn, fmt.Sprintf("learning value %d", a.LearningValue)))
	}

	technical := technicalWords.match(tokens)
	if len(technical) > 0 {
		a.Complexity = min(10, 6+len(technical))
		a.Reasoning = append(a.Reasoning, reason(technicalWords, technical, fmt.Sprintf("complexity %d", a.Complexity)))
	}

	if simple := simpleWords.match(tokens); len(simple) > 0 {
		outcome := fmt.Sprintf("complexity held at %d", a.Complexity)
		if len(technical) == 0 {
			a.Complexity = 3
			outcome = "complexity 3"
		}
		a.Reasoning = append(a.Reasoning, reason(simpleWords, simple, outcome))
	}

	if strategic := strategicWords.match(tokens); len(strategic) > 0 {
		a.StrategicImportance = min(10, 7+len(strategic))
		a.Reasoning = append(a.Reasoning, reason(strategicWords, strategic, fmt.Sprintf("strategic importance %d", a.StrategicImportance)))
	}

	if routine := routineWords.match(tokens); len(routine) > 0 {
		outcome := "ignored, escalation takes precedence"
		if len(urgent) == 0 && len(important) == 0 {
			a.Priority = domain.PriorityLow
			a.StrategicImportance = min(a.StrategicImportance, 3)
			outcome = "LOW priority"
		}
		a.Reasoning = append(a.Reasoning, reason(routineWords, routine, outcome))
	}

	return a
}

// match returns the lexicon words found in tokens, in text order, deduplicated.
func (l lexicon) match(tokens []string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if _, ok := l.words[tok]; ok && !seen[tok] {
			seen[tok] = true
			found = append(found, tok)
		}
	}
	return found
}

func reason(l lexicon, words []string, outcome string) string {
	return fmt.Sprintf("%s keywords detected (%s) → %s", l.label, strings.Join(words, ", "), outcome)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
