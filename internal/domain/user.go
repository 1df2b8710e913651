package domain

import (
	"strings"
	"time"
)

// User is the principal that owns entries and tags.
type User struct {
	UserID       string    `json:"userId"`
	PasswordHash string    `json:"-"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Settings controls what the capture pipeline records for a user.
type Settings struct {
	SyncEnabled           bool     `json:"syncEnabled"`
	BlacklistedDomains    []string `json:"blacklistedDomains"`
	LoggingEnabled        bool     `json:"loggingEnabled"`
	ContentCaptureEnabled bool     `json:"contentCaptureEnabled"`
}

// DefaultSettings returns the settings new users start with.
func DefaultSettings() Settings {
	return Settings{
		SyncEnabled:           false,
		BlacklistedDomains:    []string{"mail.google.com", "online-banking", "accounts.google.com"},
		LoggingEnabled:        true,
		ContentCaptureEnabled: true,
	}
}

// Blacklisted reports whether host contains any blacklisted fragment.
func (s Settings) Blacklisted(host string) (string, bool) {
	host = strings.ToLower(host)
	for _, b := range s.BlacklistedDomains {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" && strings.Contains(host, b) {
			return b, true
		}
	}
	return "", false
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	SyncEnabled           *bool     `json:"syncEnabled,omitempty"`
	BlacklistedDomains    *[]string `json:"blacklistedDomains,omitempty"`
	LoggingEnabled        *bool     `json:"loggingEnabled,omitempty"`
	ContentCaptureEnabled *bool     `json:"contentCaptureEnabled,omitempty"`
}

// Apply returns s with the patch's non-nil fields applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SyncEnabled != nil {
		s.SyncEnabled = *p.SyncEnabled
	}
	if p.BlacklistedDomains != nil {
		s.BlacklistedDomains = append([]string(nil), (*p.BlacklistedDomains)...)
	}
	if p.LoggingEnabled != nil {
		s.LoggingEnabled = *p.LoggingEnabled
	}
	if p.ContentCaptureEnabled != nil {
		s.ContentCaptureEnabled = *p.ContentCaptureEnabled
	}
	return s
}
