package models

import (
	"encoding/json"
	"time"
)

// ActivityType identifies the payload schema of an Activity record.
type ActivityType string

const (
	ActivityWindowFocus    ActivityType = "window_focus"
	ActivityIdleStart      ActivityType = "idle_start"
	ActivityIdleEnd        ActivityType = "idle_end"
	ActivityInput          ActivityType = "input_activity"
	ActivityScreenshot     ActivityType = "screenshot"
	ActivityPageVisit      ActivityType = "page_visit"
	ActivitySearch         ActivityType = "search"
	ActivityLocation       ActivityType = "location"
	ActivityAudioRecording ActivityType = "audio_recording"
	ActivityThought        ActivityType = "thought"
)

// ActivitySource identifies which client produced an Activity record.
type ActivitySource string

const (
	SourceDesktop ActivitySource = "desktop"
	SourceBrowser ActivitySource = "browser"
	SourceMobile  ActivitySource = "mobile"
)

// Activity is the generic envelope transported by the sync engine. The
// payload schema is owned by the producer; the sync layer treats it as
// opaque JSON.
type Activity struct {
	Type      ActivityType    `json:"type"`
	Source    ActivitySource  `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewActivity builds an envelope around an already-marshaled payload.
func NewActivity(typ ActivityType, source ActivitySource, ts time.Time, payload any) (Activity, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Activity{}, err
		}
		raw = data
	}
	return Activity{
		Type:      typ,
		Source:    source,
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// SyncRequest is the body of POST /activities/sync.
type SyncRequest struct {
	DeviceID          string     `json:"deviceId"`
	Activities        []Activity `json:"activities"`
	LastSyncTimestamp time.Time  `json:"lastSyncTimestamp"`
}

// SyncResponse is the backend's answer to a sync request.
type SyncResponse struct {
	Success         bool      `json:"success"`
	SyncedCount     int       `json:"syncedCount"`
	ServerTimestamp time.Time `json:"serverTimestamp"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries a new token pair.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
