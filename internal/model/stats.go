package model

import "time"

// DirectReferrer is shown for clicks that arrived without a Referer header.
const DirectReferrer = "direct"

// StatsView is the read-time projection of a mapping and its clicks.
type StatsView struct {
	ShortCode   string      `json:"shortcode"`
	TargetURL   string      `json:"url"`
	CreatedAt   time.Time   `json:"createdAt"`
	ExpiresAt   time.Time   `json:"expiry"`
	Expired     bool        `json:"expired"`
	TotalClicks int         `json:"totalClicks"`
	Clicks      []ClickView `json:"clicks"`
}

// ClickView is a click as presented in the stats view.
type ClickView struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	Location  Geo       `json:"location"`
}
