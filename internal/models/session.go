package models

import "time"

// UnknownDevice is the sentinel used when a user-agent cannot be interpreted
const UnknownDevice = "Unknown"

// DeviceInfo is the parsed summary of a user-agent string
type DeviceInfo struct {
	Device   string `json:"device"`
	Browser  string `json:"browser"`
	OS       string `json:"os"`
	IsMobile bool   `json:"is_mobile"`
	Raw      string `json:"raw"`
}

// UnknownDeviceInfo returns the sentinel summary for ua
func UnknownDeviceInfo(ua string) DeviceInfo {
	return DeviceInfo{
		Device:  UnknownDevice,
		Browser: UnknownDevice,
		OS:      UnknownDevice,
		Raw:     TruncateUserAgent(ua),
	}
}

// SessionView is the human-facing projection of an active refresh token.
// It never carries the secret.
type SessionView struct {
	ID         string    `json:"id"`
	Device     string    `json:"device_name"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	IsMobile   bool      `json:"is_mobile"`
	IPAddress  string    `json:"ip_address"`
	Location   string    `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current"`
}

// SessionListResponse wraps the session listing
type SessionListResponse struct {
	Sessions []SessionView `json:"sessions"`
}
