package custody

import (
	"errors"
	"time"
)

// Asset custody statuses.
const (
	AssetStored   = "stored"
	AssetPending  = "pending"
	AssetReleased = "released"
)

// Release request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// Asset is a stored physical asset record. Status is the only field the
// workflow mutates. Values are in minor units (no floats); DemurrageRate is
// in basis points per year.
type Asset struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	OriginalValue int64     `json:"original_value"`
	CurrentValue  int64     `json:"current_value"`
	DemurrageRate int64     `json:"demurrage_rate"`
	DepositDate   time.Time `json:"deposit_date"`
	Status        string    `json:"status"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Document is an uploaded file's metadata, owned by exactly one user. There
// is no deletion path.
type Document struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Type       string    `json:"type"`
	FileKey    string    `json:"file_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ReleaseRequest links a user, an asset and an ordered set of documents.
// Created once by a user; processed by an admin.
type ReleaseRequest struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	AssetID     string     `json:"asset_id"`
	DocumentIDs []string   `json:"document_ids"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
}

// RequestDetail is a release request resolved with the requester's display
// fields and the full asset record. Dangling references resolve to zero
// values rather than errors.
type RequestDetail struct {
	ReleaseRequest
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	Asset     *Asset `json:"asset,omitempty"`
}

var (
	ErrNotFound         = errors.New("custody: not found")
	ErrAlreadyProcessed = errors.New("custody: request already processed")
)

// CascadeStatus maps a request transition onto the asset custody status.
// Anything outside approved/rejected leaves the asset untouched.
func CascadeStatus(requestStatus string) (string, bool) {
	switch requestStatus {
	case RequestApproved:
		return AssetReleased, true
	case RequestRejected:
		return AssetStored, true
	}
	return "", false
}
