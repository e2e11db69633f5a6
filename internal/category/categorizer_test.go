package category

import (
	"testing"

	"lifelog/pulse-agent/internal/config"
	"lifelog/pulse-agent/internal/stats"
)

func testRules() []config.CategoryRule {
	return []config.CategoryRule{
		{Name: "Development", Apps: []string{"code", "goland"}, ProductivityScore: 0.9, Color: "#00aa00"},
		{Name: "Communication", Apps: []string{"slack", "teams"}, ProductivityScore: 0.6},
	}
}

func TestCategorizeSubstringCaseInsensitive(t *testing.T) {
	c := New(testRules())

	if got := c.Categorize("Visual Studio Code"); got.Name != "Development" {
		t.Errorf("categorize = %+v, want Development", got)
	}
	if got := c.Categorize("SLACK"); got.Name != "Communication" {
		t.Errorf("categorize = %+v, want Communication", got)
	}
}

func TestCategorizeUnknownApp(t *testing.T) {
	c := New(testRules())

	got := c.Categorize("solitaire")
	if got.Name != "Uncategorized" || got.ProductivityScore != 0.5 {
		t.Errorf("categorize = %+v, want Uncategorized/0.5", got)
	}
}

func TestOverallProductivityDurationWeighted(t *testing.T) {
	c := New(nil)

	entries := []stats.ProductivityEntry{
		{ProductivityScore: 1.0, DurationSeconds: 300},
		{ProductivityScore: 0.0, DurationSeconds: 100},
	}
	if got := c.OverallProductivity(entries); got != 0.75 {
		t.Errorf("overall = %v, want 0.75", got)
	}

	if got := c.OverallProductivity(nil); got != 0 {
		t.Errorf("overall of empty = %v, want 0", got)
	}
}
