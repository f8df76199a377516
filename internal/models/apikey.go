package models

import "time"

// APIKey is an operator-issued access key for the control surface.
// The raw key is stored so it can be validated; listings expose only
// a masked preview.
type APIKey struct {
	KeyID     string     `json:"key_id"`
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// Preview returns the masked display form of the key
func (k APIKey) Preview() string {
	if len(k.Key) < 12 {
		return k.Key
	}
	return k.Key[:8] + "..." + k.Key[len(k.Key)-4:]
}

// APIKeyListing is the masked view returned by list operations
type APIKeyListing struct {
	KeyID      string     `json:"key_id"`
	Label      string     `json:"label"`
	KeyPreview string     `json:"key_preview"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}

// ReportRef is an index entry for a generated report stored elsewhere
type ReportRef struct {
	ReportID    string    `json:"report_id"`
	Date        string    `json:"date"`
	Kind        string    `json:"kind"`
	Location    string    `json:"location"`
	GeneratedAt time.Time `json:"generated_at"`
}
