package models

import "time"

// InputStats is one closed input-aggregation window.
type InputStats struct {
	Keystrokes      int       `json:"keystrokes"`
	Words           int       `json:"words"`
	TypingSpeedWPM  float64   `json:"typingSpeedWpm"`
	LeftClicks      int       `json:"leftClicks"`
	RightClicks     int       `json:"rightClicks"`
	MiddleClicks    int       `json:"middleClicks"`
	PointerDistance float64   `json:"pointerDistance"`
	ScrollMagnitude float64   `json:"scrollMagnitude"`
	ShiftCount      int       `json:"shiftCount"`
	CtrlCount       int       `json:"ctrlCount"`
	AltCount        int       `json:"altCount"`
	MetaCount       int       `json:"metaCount"`
	PeriodStartTime time.Time `json:"periodStartTime"`
	PeriodEndTime   time.Time `json:"periodEndTime"`
	DurationSeconds float64   `json:"durationSeconds"`
}

// TotalClicks sums clicks across all buttons.
func (s InputStats) TotalClicks() int {
	return s.LeftClicks + s.RightClicks + s.MiddleClicks
}

// SessionData is one continuous period of foreground-window occupancy.
type SessionData struct {
	Application     string     `json:"application"`
	Title           string     `json:"title"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	DurationSeconds float64    `json:"durationSeconds"`
	Input           InputStats `json:"input"`
}

// IdlePeriod is one interval without qualifying input beyond the threshold.
type IdlePeriod struct {
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds float64   `json:"durationSeconds"`
}

// AppUsage is the per-application slice of a daily report.
type AppUsage struct {
	Application     string  `json:"application"`
	DurationSeconds float64 `json:"durationSeconds"`
	SessionCount    int     `json:"sessionCount"`
	Keystrokes      int     `json:"keystrokes"`
	Clicks          int     `json:"clicks"`
}

// CategoryUsage is the per-category slice of a daily report.
type CategoryUsage struct {
	Category        string  `json:"category"`
	DurationSeconds float64 `json:"durationSeconds"`
	Percentage      float64 `json:"percentage"`
}

// HourlySlot is one of the 24 fixed buckets of a daily report.
type HourlySlot struct {
	Hour          int     `json:"hour"`
	ActiveSeconds float64 `json:"activeSeconds"`
	IdleSeconds   float64 `json:"idleSeconds"`
	TopApp        string  `json:"topApp"`
	Keystrokes    int     `json:"keystrokes"`
	Clicks        int     `json:"clicks"`
}

// AggregatedStats is the read model for one calendar date.
type AggregatedStats struct {
	Date               string          `json:"date"`
	TotalActiveSeconds float64         `json:"totalActiveSeconds"`
	TotalIdleSeconds   float64         `json:"totalIdleSeconds"`
	ProductivityScore  float64         `json:"productivityScore"`
	AppBreakdown       []AppUsage      `json:"appBreakdown"`
	CategoryBreakdown  []CategoryUsage `json:"categoryBreakdown"`
	HourlyBreakdown    [24]HourlySlot  `json:"hourlyBreakdown"`
	Input              InputStats      `json:"input"`
}
