package category

import (
	"strings"

	"lifelog/pulse-agent/internal/config"
	"lifelog/pulse-agent/internal/stats"
)

const (
	uncategorized = "Uncategorized"

	// Neutral weight for applications no rule matches.
	defaultScore = 0.5
)

// Categorizer resolves applications to productivity categories using the
// configured rules: case-insensitive substring match, first rule wins.
type Categorizer struct {
	rules []config.CategoryRule
}

// New creates a categorizer from config rules.
func New(rules []config.CategoryRule) *Categorizer {
	return &Categorizer{rules: rules}
}

// Categorize resolves one application name.
func (c *Categorizer) Categorize(appName string) stats.Category {
	appLower := strings.ToLower(appName)
	for _, rule := range c.rules {
		for _, pattern := range rule.Apps {
			if pattern != "" && strings.Contains(appLower, strings.ToLower(pattern)) {
				return stats.Category{
					Name:              rule.Name,
					ProductivityScore: rule.ProductivityScore,
					Color:             rule.Color,
				}
			}
		}
	}
	return stats.Category{Name: uncategorized, ProductivityScore: defaultScore}
}

// ProductivityData returns one session's productivity contribution.
func (c *Categorizer) ProductivityData(appName string, durationSeconds float64, title string) stats.ProductivityEntry {
	cat := c.Categorize(appName)
	return stats.ProductivityEntry{
		Category:          cat.Name,
		ProductivityScore: cat.ProductivityScore,
		DurationSeconds:   durationSeconds,
	}
}

// OverallProductivity combines per-session entries into a duration-weighted
// scalar in [0, 1]. An empty day scores 0.
func (c *Categorizer) OverallProductivity(entries []stats.ProductivityEntry) float64 {
	var weighted, total float64
	for _, entry := range entries {
		weighted += entry.ProductivityScore * entry.DurationSeconds
		total += entry.DurationSeconds
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
