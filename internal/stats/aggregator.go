package stats

import (
	"sort"
	"time"

	"lifelog/pulse-agent/internal/models"
)

// Category describes the classification of one application.
type Category struct {
	Name              string
	ProductivityScore float64
	Color             string
}

// ProductivityEntry is one session's contribution to the overall
// productivity score.
type ProductivityEntry struct {
	Category          string
	ProductivityScore float64
	DurationSeconds   float64
}

// Categorizer maps application identifiers to productivity categories
// and combines per-session scores into an overall scalar.
type Categorizer interface {
	Categorize(appName string) Category
	ProductivityData(appName string, durationSeconds float64, title string) ProductivityEntry
	OverallProductivity(entries []ProductivityEntry) float64
}

// ComputeDaily rolls the append-only session/idle/input logs into the
// read model for one calendar date. It is a pure function of its inputs
// and can be recomputed from scratch at any time.
func ComputeDaily(
	date time.Time,
	sessions []models.SessionData,
	idles []models.IdlePeriod,
	inputs []models.InputStats,
	categorizer Categorizer,
) models.AggregatedStats {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	inDay := func(ts time.Time) bool {
		return !ts.Before(dayStart) && ts.Before(dayEnd)
	}

	result := models.AggregatedStats{
		Date:              dayStart.Format("2006-01-02"),
		AppBreakdown:      []models.AppUsage{},
		CategoryBreakdown: []models.CategoryUsage{},
	}
	for hour := range result.HourlyBreakdown {
		result.HourlyBreakdown[hour].Hour = hour
	}

	// Per-bucket per-app durations, for the hourly "top app".
	hourlyAppDurations := make([]map[string]float64, 24)

	byApp := make(map[string]*models.AppUsage)
	var productivity []ProductivityEntry

	for _, s := range sessions {
		if !inDay(s.StartTime) {
			continue
		}

		result.TotalActiveSeconds += s.DurationSeconds

		usage, ok := byApp[s.Application]
		if !ok {
			usage = &models.AppUsage{Application: s.Application}
			byApp[s.Application] = usage
		}
		usage.DurationSeconds += s.DurationSeconds
		usage.SessionCount++
		usage.Keystrokes += s.Input.Keystrokes
		usage.Clicks += s.Input.TotalClicks()

		hour := s.StartTime.Hour()
		slot := &result.HourlyBreakdown[hour]
		slot.ActiveSeconds += s.DurationSeconds
		slot.Keystrokes += s.Input.Keystrokes
		slot.Clicks += s.Input.TotalClicks()

		if hourlyAppDurations[hour] == nil {
			hourlyAppDurations[hour] = make(map[string]float64)
		}
		hourlyAppDurations[hour][s.Application] += s.DurationSeconds

		productivity = append(productivity,
			categorizer.ProductivityData(s.Application, s.DurationSeconds, s.Title))
	}

	for _, idle := range idles {
		if !inDay(idle.StartTime) {
			continue
		}
		result.TotalIdleSeconds += idle.DurationSeconds
		result.HourlyBreakdown[idle.StartTime.Hour()].IdleSeconds += idle.DurationSeconds
	}

	for hour, durations := range hourlyAppDurations {
		var topApp string
		var topDuration float64
		for app, duration := range durations {
			if duration > topDuration || (duration == topDuration && (topApp == "" || app < topApp)) {
				topApp, topDuration = app, duration
			}
		}
		result.HourlyBreakdown[hour].TopApp = topApp
	}

	for _, usage := range byApp {
		result.AppBreakdown = append(result.AppBreakdown, *usage)
	}
	sort.Slice(result.AppBreakdown, func(i, j int) bool {
		if result.AppBreakdown[i].DurationSeconds != result.AppBreakdown[j].DurationSeconds {
			return result.AppBreakdown[i].DurationSeconds > result.AppBreakdown[j].DurationSeconds
		}
		return result.AppBreakdown[i].Application < result.AppBreakdown[j].Application
	})

	result.CategoryBreakdown = categoryBreakdown(result.AppBreakdown, result.TotalActiveSeconds, categorizer)
	result.Input = rollupInput(inputs, inDay)
	result.ProductivityScore = categorizer.OverallProductivity(productivity)

	return result
}

func categoryBreakdown(apps []models.AppUsage, totalActive float64, categorizer Categorizer) []models.CategoryUsage {
	byCategory := make(map[string]float64)
	for _, usage := range apps {
		category := categorizer.Categorize(usage.Application)
		byCategory[category.Name] += usage.DurationSeconds
	}

	breakdown := make([]models.CategoryUsage, 0, len(byCategory))
	for name, duration := range byCategory {
		usage := models.CategoryUsage{
			Category:        name,
			DurationSeconds: duration,
		}
		if totalActive > 0 {
			usage.Percentage = duration / totalActive * 100
		}
		breakdown = append(breakdown, usage)
	}

	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].DurationSeconds != breakdown[j].DurationSeconds {
			return breakdown[i].DurationSeconds > breakdown[j].DurationSeconds
		}
		return breakdown[i].Category < breakdown[j].Category
	})

	return breakdown
}

// rollupInput sums the additive fields of the day's input windows. The
// typing speed is keystroke-weighted so short, low-activity windows do
// not bias the average.
func rollupInput(inputs []models.InputStats, inDay func(time.Time) bool) models.InputStats {
	var rollup models.InputStats
	var speedWeight float64

	for _, window := range inputs {
		if !inDay(window.PeriodStartTime) {
			continue
		}

		rollup.Keystrokes += window.Keystrokes
		rollup.Words += window.Words
		rollup.LeftClicks += window.LeftClicks
		rollup.RightClicks += window.RightClicks
		rollup.MiddleClicks += window.MiddleClicks
		rollup.PointerDistance += window.PointerDistance
		rollup.ScrollMagnitude += window.ScrollMagnitude
		rollup.ShiftCount += window.ShiftCount
		rollup.CtrlCount += window.CtrlCount
		rollup.AltCount += window.AltCount
		rollup.MetaCount += window.MetaCount
		rollup.DurationSeconds += window.DurationSeconds

		speedWeight += window.TypingSpeedWPM * float64(window.Keystrokes)

		if rollup.PeriodStartTime.IsZero() || window.PeriodStartTime.Before(rollup.PeriodStartTime) {
			rollup.PeriodStartTime = window.PeriodStartTime
		}
		if window.PeriodEndTime.After(rollup.PeriodEndTime) {
			rollup.PeriodEndTime = window.PeriodEndTime
		}
	}

	if rollup.Keystrokes > 0 {
		rollup.TypingSpeedWPM = speedWeight / float64(rollup.Keystrokes)
	}

	return rollup
}
