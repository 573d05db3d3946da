package model

import (
	"time"
)

// ShortURL is a shortcode mapping together with its click log.
type ShortURL struct {
	ID        int64        `json:"-"`
	ShortCode string       `json:"short_code"`
	TargetURL string       `json:"target_url"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	Clicks    []ClickEvent `json:"clicks,omitempty"`
}

// ClickEvent is one redirect through a shortcode.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"user_agent"`
	SourceIP  string    `json:"source_ip"`
	Geo       Geo       `json:"geo"`
}

// Geo is a coarse location; any field may be empty.
type Geo struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// IsZero reports whether no location field is known.
func (g Geo) IsZero() bool {
	return g.Country == "" && g.Region == "" && g.City == ""
}

// IsExpiredAt reports whether the mapping is past its expiry at the given instant.
func (u *ShortURL) IsExpiredAt(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// Header returns a copy of the mapping without its click log.
func (u *ShortURL) Header() *ShortURL {
	return &ShortURL{
		ID:        u.ID,
		ShortCode: u.ShortCode,
		TargetURL: u.TargetURL,
		CreatedAt: u.CreatedAt,
		ExpiresAt: u.ExpiresAt,
	}
}
