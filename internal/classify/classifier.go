// Package classify assigns severity levels to free-text issue
// descriptions using weighted keyword and regex rules.
//
// Levels run 1 (informational question) to 5 (critical: outage,
// breach, safety). Scoring is lexical only; text is lowercased before
// matching and never mutated otherwise.
package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashita-ai/monban/internal/model"
)

// maxScoreForFullConfidence is the accumulated score at which
// confidence saturates at 1.0.
const maxScoreForFullConfidence = 5.0

// Classifier scores issue text against the level rule tables.
type Classifier struct {
	logger       *slog.Logger
	defaultLevel int
}

// New creates a classifier. defaultLevel is assigned when no rule
// matches; values outside 1..5 fall back to 2.
func New(logger *slog.Logger, defaultLevel int) *Classifier {
	if !model.ValidLevel(defaultLevel) {
		defaultLevel = 2
	}
	return &Classifier{logger: logger, defaultLevel: defaultLevel}
}

// Classify scores text against every level's rules and returns the
// winning level with confidence and reasoning. Ties go to the lowest
// level. Empty input gets the default level with zero confidence.
func (c *Classifier) Classify(text string) model.Classification {
	if strings.TrimSpace(text) == "" {
		return model.Classification{
			Level:      c.defaultLevel,
			Confidence: 0.0,
			Reasoning:  "empty issue description",
		}
	}

	lower := strings.ToLower(text)

	var (
		bestScore    float64
		bestLevel    = c.defaultLevel
		bestKeywords []string
		bestPatterns []string
	)

	// levelRules is ordered ascending, and only a strictly greater
	// score replaces the best, so a tie resolves to the lowest level.
	for _, rule := range levelRules {
		score, keywords, patterns := scoreRule(lower, rule)
		if score > bestScore {
			bestScore = score
			bestLevel = rule.level
			bestKeywords = keywords
			bestPatterns = patterns
		}
	}

	if bestScore == 0 {
		return model.Classification{
			Level:      c.defaultLevel,
			Confidence: 0.3,
			Reasoning:  "no clear indicators found",
		}
	}

	confidence := bestScore / maxScoreForFullConfidence
	if confidence > 1.0 {
		confidence = 1.0
	}

	result := model.Classification{
		Level:           bestLevel,
		Confidence:      confidence,
		Reasoning:       reasoning(bestLevel, bestKeywords, bestPatterns),
		MatchedKeywords: bestKeywords,
		MatchedPatterns: bestPatterns,
	}

	c.logger.Debug("classify: scored text",
		"level", result.Level,
		"confidence", result.Confidence,
		"keywords", len(bestKeywords),
		"patterns", len(bestPatterns),
	)
	return result
}

// scoreRule returns the accumulated score for one level along with
// the keywords and pattern expressions that matched.
func scoreRule(lower string, rule levelRule) (float64, []string, []string) {
	var score float64
	var keywords, patterns []string

	for _, kw := range rule.keywords {
		if strings.Contains(lower, kw) {
			score += rule.keywordWeight
			keywords = append(keywords, kw)
		}
	}
	for _, pat := range rule.patterns {
		if pat.MatchString(lower) {
			score += rule.patternWeight
			patterns = append(patterns, pat.String())
		}
	}
	return score, keywords, patterns
}

func reasoning(level int, keywords, patterns []string) string {
	var parts []string
	if len(keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(keywords, ", "))
	}
	if len(patterns) > 0 {
		parts = append(parts, "patterns: "+strings.Join(patterns, ", "))
	}
	return fmt.Sprintf("level %d indicators (%s)", level, strings.Join(parts, "; "))
}
