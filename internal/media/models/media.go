package models

import (
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	Video   MediaKind = "video"
	Image   MediaKind = "image"
	Audio   MediaKind = "audio"
	Unknown MediaKind = "unknown"
)

type AccessLevel string

const (
	AccessPublic      AccessLevel = "public"
	AccessFollowers   AccessLevel = "followers"
	AccessSubscribers AccessLevel = "subscribers"
	AccessPayPerView  AccessLevel = "ppv"
	AccessPrivate     AccessLevel = "private"
)

// MediaReference is the loosely typed description of "some media" handed in
// by feature code (posts, stories, ads, chat attachments, avatars). Callers
// populate whatever fields they have; the resolver probes them in priority
// order. A bare URL string is carried in Raw.
type MediaReference struct {
	Raw       string
	VideoURL  string
	AudioURL  string
	MediaURLs []string
	URL       string
	Kind      MediaKind
	Thumbnail string
	Extra     map[string]any
}

// RefFromString wraps a bare URL string as a MediaReference.
func RefFromString(raw string) MediaReference {
	return MediaReference{Raw: raw}
}

// PlayableSource is the resolved, canonical form of a MediaReference.
// Immutable once produced; retries build a new value instead of mutating.
type PlayableSource struct {
	URL       string
	Kind      MediaKind
	Thumbnail string
}

// Asset is the metadata record created for every stored object.
type Asset struct {
	ID          string            `db:"id"`
	OwnerID     uuid.UUID         `db:"owner_id"`
	Category    string            `db:"category"`
	StoragePath string            `db:"storage_path"`
	MimeType    string            `db:"mime_type"`
	SizeBytes   int64             `db:"size_bytes"`
	AccessLevel AccessLevel       `db:"access_level"`
	Tags        map[string]string `db:"-"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// AccessDecision is the outcome of the access gate. Errored distinguishes
// "the check itself failed, try again" from "not entitled".
type AccessDecision struct {
	CanAccess bool
	Reason    string
	Errored   bool
}

const (
	ReasonNotEntitled = "not_entitled"
	ReasonPrivate     = "private"
	ReasonCheckFailed = "check_failed"
)
