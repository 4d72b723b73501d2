package model

import (
	"fmt"
	"strings"
)

// PlatformUnknown is the sentinel platform used when a content script
// could not identify the site it is running on.
const PlatformUnknown = "unknown"

// Observation is one raw progress report from a content script. All
// fields except Title are optional; defaults are applied at ingestion.
type Observation struct {
	Title    string  `json:"title"`
	Episode  string  `json:"episode"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Cover    string  `json:"cover"`
	URL      string  `json:"url"`
	Platform string  `json:"platform"`
}

// ProgressEntry is the stored watch state for one (user, platform, title).
// Liked is user-controlled and carried forward across observations;
// LastUpdated is stamped on every ingestion.
type ProgressEntry struct {
	Title       string  `json:"title"`
	Episode     string  `json:"episode"`
	Time        float64 `json:"time"`
	Duration    float64 `json:"duration"`
	Liked       bool    `json:"liked"`
	Cover       string  `json:"cover"`
	URL         string  `json:"url"`
	Platform    string  `json:"platform"`
	LastUpdated int64   `json:"lastUpdated"` // ms since epoch
}

// ProgressKey builds the composite identity for a progress record.
// Case-sensitive; an empty platform falls back to PlatformUnknown.
func ProgressKey(userID, platform, title string) string {
	if platform == "" {
		platform = PlatformUnknown
	}
	return fmt.Sprintf("%s:%s:%s", userID, platform, title)
}

// ItemKey is the backend-side record key, scoped to a user row rather
// than embedding the user id.
func ItemKey(platform, title string) string {
	if platform == "" {
		platform = PlatformUnknown
	}
	return fmt.Sprintf("%s:%s", platform, title)
}

// StripFragment removes the #fragment part of a URL for resume matching.
func StripFragment(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i]
	}
	return url
}
