package stats

import (
	"testing"
	"time"

	"lifelog/pulse-agent/internal/models"
)

// stubCategorizer assigns every app its own name as category with a
// fixed score.
type stubCategorizer struct {
	score float64
}

func (s stubCategorizer) Categorize(appName string) Category {
	return Category{Name: appName, ProductivityScore: s.score}
}

func (s stubCategorizer) ProductivityData(appName string, durationSeconds float64, title string) ProductivityEntry {
	return ProductivityEntry{Category: appName, ProductivityScore: s.score, DurationSeconds: durationSeconds}
}

func (s stubCategorizer) OverallProductivity(entries []ProductivityEntry) float64 {
	var weighted, total float64
	for _, e := range entries {
		weighted += e.ProductivityScore * e.DurationSeconds
		total += e.DurationSeconds
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
}

func session(start time.Time, durationSec float64, app string, keystrokes, clicks int) models.SessionData {
	return models.SessionData{
		Application:     app,
		Title:           app,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(durationSec * float64(time.Second))),
		DurationSeconds: durationSec,
		Input: models.InputStats{
			Keystrokes: keystrokes,
			LeftClicks: clicks,
		},
	}
}

func TestEmptyDayYieldsZeroedReport(t *testing.T) {
	report := ComputeDaily(day(t), nil, nil, nil, stubCategorizer{})

	if report.TotalActiveSeconds != 0 || report.TotalIdleSeconds != 0 {
		t.Errorf("totals = %v/%v, want 0/0", report.TotalActiveSeconds, report.TotalIdleSeconds)
	}
	if report.ProductivityScore != 0 {
		t.Errorf("productivity = %v, want 0", report.ProductivityScore)
	}
	if len(report.AppBreakdown) != 0 || len(report.CategoryBreakdown) != 0 {
		t.Errorf("breakdowns not empty: %v / %v", report.AppBreakdown, report.CategoryBreakdown)
	}
	if report.Input.Keystrokes != 0 || report.Input.TypingSpeedWPM != 0 {
		t.Errorf("input rollup not zeroed: %+v", report.Input)
	}
	for hour, slot := range report.HourlyBreakdown {
		if slot.Hour != hour {
			t.Fatalf("slot %d labeled %d", hour, slot.Hour)
		}
		if slot.ActiveSeconds != 0 || slot.IdleSeconds != 0 || slot.TopApp != "" {
			t.Fatalf("slot %d not zeroed: %+v", hour, slot)
		}
	}
}

func TestAppBreakdownSortedByDuration(t *testing.T) {
	d := day(t)
	sessions := []models.SessionData{
		session(d.Add(9*time.Hour), 600, "firefox", 100, 40),
		session(d.Add(10*time.Hour), 1800, "code", 500, 10),
		session(d.Add(11*time.Hour), 300, "code", 200, 5),
		// Next day: must be excluded from the report.
		session(d.Add(25*time.Hour), 900, "slack", 1, 1),
	}

	report := ComputeDaily(d, sessions, nil, nil, stubCategorizer{score: 1})

	if report.TotalActiveSeconds != 2700 {
		t.Errorf("total active = %v, want 2700", report.TotalActiveSeconds)
	}
	if len(report.AppBreakdown) != 2 {
		t.Fatalf("app breakdown size = %d, want 2", len(report.AppBreakdown))
	}
	top := report.AppBreakdown[0]
	if top.Application != "code" || top.DurationSeconds != 2100 || top.SessionCount != 2 {
		t.Errorf("top app = %+v", top)
	}
	if top.Keystrokes != 700 || top.Clicks != 15 {
		t.Errorf("top app counters = %d keys, %d clicks", top.Keystrokes, top.Clicks)
	}
}

func TestCategoryPercentages(t *testing.T) {
	d := day(t)
	sessions := []models.SessionData{
		session(d.Add(9*time.Hour), 750, "code", 0, 0),
		session(d.Add(10*time.Hour), 250, "firefox", 0, 0),
	}

	report := ComputeDaily(d, sessions, nil, nil, stubCategorizer{score: 1})

	if len(report.CategoryBreakdown) != 2 {
		t.Fatalf("category breakdown size = %d, want 2", len(report.CategoryBreakdown))
	}
	if report.CategoryBreakdown[0].Category != "code" || report.CategoryBreakdown[0].Percentage != 75 {
		t.Errorf("first category = %+v", report.CategoryBreakdown[0])
	}
	if report.CategoryBreakdown[1].Percentage != 25 {
		t.Errorf("second category = %+v", report.CategoryBreakdown[1])
	}
}

func TestHourlyBuckets(t *testing.T) {
	d := day(t)
	sessions := []models.SessionData{
		session(d.Add(9*time.Hour), 1200, "code", 50, 2),
		session(d.Add(9*time.Hour+30*time.Minute), 600, "firefox", 20, 8),
		session(d.Add(14*time.Hour), 300, "slack", 5, 1),
	}
	idles := []models.IdlePeriod{
		{StartTime: d.Add(9*time.Hour + 50*time.Minute), EndTime: d.Add(10 * time.Hour), DurationSeconds: 600},
	}

	report := ComputeDaily(d, sessions, idles, nil, stubCategorizer{score: 1})

	nine := report.HourlyBreakdown[9]
	if nine.ActiveSeconds != 1800 || nine.IdleSeconds != 600 {
		t.Errorf("hour 9 = %+v", nine)
	}
	if nine.TopApp != "code" {
		t.Errorf("hour 9 top app = %q, want code", nine.TopApp)
	}
	if nine.Keystrokes != 70 || nine.Clicks != 10 {
		t.Errorf("hour 9 counters = %d/%d", nine.Keystrokes, nine.Clicks)
	}
	if report.HourlyBreakdown[14].TopApp != "slack" {
		t.Errorf("hour 14 top app = %q", report.HourlyBreakdown[14].TopApp)
	}
	if report.HourlyBreakdown[10].ActiveSeconds != 0 {
		t.Errorf("hour 10 should be empty")
	}
}

func TestTypingSpeedIsKeystrokeWeighted(t *testing.T) {
	d := day(t)
	inputs := []models.InputStats{
		{PeriodStartTime: d.Add(9 * time.Hour), PeriodEndTime: d.Add(9*time.Hour + time.Minute), Keystrokes: 90, TypingSpeedWPM: 10},
		{PeriodStartTime: d.Add(10 * time.Hour), PeriodEndTime: d.Add(10*time.Hour + time.Minute), Keystrokes: 10, TypingSpeedWPM: 100},
	}

	report := ComputeDaily(d, nil, nil, inputs, stubCategorizer{})

	// (10*90 + 100*10) / 100 = 19, not the naive mean of 55.
	if report.Input.TypingSpeedWPM != 19 {
		t.Errorf("weighted wpm = %v, want 19", report.Input.TypingSpeedWPM)
	}
	if report.Input.Keystrokes != 100 {
		t.Errorf("keystrokes = %d, want 100", report.Input.Keystrokes)
	}
}

func TestProductivityScoreWeightedByDuration(t *testing.T) {
	d := day(t)
	sessions := []models.SessionData{
		session(d.Add(9*time.Hour), 900, "code", 0, 0),
	}

	report := ComputeDaily(d, sessions, nil, nil, stubCategorizer{score: 0.8})
	if report.ProductivityScore != 0.8 {
		t.Errorf("productivity = %v, want 0.8", report.ProductivityScore)
	}
}
