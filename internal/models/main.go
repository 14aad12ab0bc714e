// Package models defines the core data structures for identities, profiles and files.
package models

import "time"

// Identity is an account known to the credential store. It is never
// serialized to clients.
type Identity struct {
	// AccountID is the credential store's identifier for the account.
	AccountID string
	// Email is unique and lower-cased.
	Email string
	// Name is the display name given at sign-up.
	Name string
	// PasswordHash is empty until a password is established.
	PasswordHash string
	// Verified is set once an OTP challenge has been consumed.
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the identity can log in with a password.
func (i Identity) HasPassword() bool { return i.PasswordHash != "" }

// Authentication methods recorded on a session.
const (
	AuthOTP      = "otp"
	AuthPassword = "password"
)

// Session is a resolved session token.
type Session struct {
	// ID is the token id used for revocation.
	ID        string
	AccountID string
	// Method is AuthOTP or AuthPassword.
	Method    string
	ExpiresAt time.Time
}

// Profile is the application-level user record. Exactly one profile exists
// per email and it references exactly one identity.
type Profile struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerInfo is the owner summary attached to listed files.
type OwnerInfo struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// UnknownOwner is used when a file's owner profile cannot be resolved.
var UnknownOwner = OwnerInfo{FullName: "Unknown User"}

// File is the metadata record of an uploaded blob.
type File struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Extension string   `json:"extension"`
	Size      int64    `json:"size"`
	Type      FileType `json:"type"`
	URL       string   `json:"url"`
	// OwnerID is the owner's profile id.
	OwnerID string `json:"ownerId"`
	// AccountID is the uploader's account id.
	AccountID string `json:"accountId"`
	// SharedWith lists recipient emails in insertion order.
	SharedWith []string   `json:"sharedWith"`
	BlobID     string     `json:"blobId"`
	Owner      *OwnerInfo `json:"owner,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DefaultSort orders listings newest first.
const DefaultSort = "createdAt-desc"

// FileQuery narrows a file listing.
type FileQuery struct {
	Types  []FileType
	Search string
	// Sort is "<field>-<asc|desc>" with field one of createdAt, name, size.
	Sort string
	// Limit of 0 means no limit.
	Limit int
}

// TypeUsage is the aggregate of one file type.
type TypeUsage struct {
	Size       int64      `json:"size"`
	LatestDate *time.Time `json:"latestDate"`
}

// StorageUsage summarizes the space a user's owned files take.
type StorageUsage struct {
	Image    TypeUsage `json:"image"`
	Document TypeUsage `json:"document"`
	Video    TypeUsage `json:"video"`
	Audio    TypeUsage `json:"audio"`
	Other    TypeUsage `json:"other"`
	Used     int64     `json:"used"`
	All      int64     `json:"all"`
}

// Add accounts a file into the usage totals.
func (u *StorageUsage) Add(f File) {
	var t *TypeUsage
	switch f.Type {
	case TypeImage:
		t = &u.Image
	case TypeDocument:
		t = &u.Document
	case TypeVideo:
		t = &u.Video
	case TypeAudio:
		t = &u.Audio
	default:
		t = &u.Other
	}
	t.Size += f.Size
	u.Used += f.Size
	if t.LatestDate == nil || f.UpdatedAt.After(*t.LatestDate) {
		ts := f.UpdatedAt
		t.LatestDate = &ts
	}
}
