package domain

import "time"

// FileRecord is the catalog metadata kept for one stored blob.
// Pathname is the primary lookup key; URL is accepted as an alias on lookups.
type FileRecord struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Pathname    string    `json:"pathname"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Category    string    `json:"category"`
	OwnerID     string    `json:"ownerId,omitempty"`
}

// OtpRecord is a one-time passcode awaiting verification.
// The registry keeps at most one current record per phone.
type OtpRecord struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}
