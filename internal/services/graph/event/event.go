// Package event defines the typed read-model feed emitted by the graph core.
//
// Every state-changing operation appends exactly one event inside its
// transaction. Payloads carry the full post-state of the affected records so
// external read-model builders never need to query the core.
package event

import (
	"time"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Event types emitted by the graph core.
const (
	TypeIdentityCreated        = "identity.created"
	TypeIdentityImageUpdated   = "identity.image_updated"
	TypeIdentityDefaultChanged = "identity.default_changed"
	TypeIdentityBurned         = "identity.burned"

	TypeFollowCreated = "follow.created"
	TypeFollowRemoved = "follow.removed"

	TypePublicationCreated = "publication.created"
	TypePublicationUpdated = "publication.updated"
	TypePublicationDeleted = "publication.deleted"

	TypePublicationLiked    = "publication.liked"
	TypePublicationUnliked  = "publication.unliked"
	TypePublicationDisliked = "publication.disliked"
	TypeDislikeWithdrawn    = "publication.dislike_withdrawn"

	TypeCommentCreated = "comment.created"
	TypeCommentUpdated = "comment.updated"
	TypeCommentDeleted = "comment.deleted"
)

// Identity is the wire snapshot of a profile record.
type Identity struct {
	ID             int64     `json:"id"`
	Owner          string    `json:"owner"`
	Handle         string    `json:"handle"`
	ImageURI       string    `json:"image_uri,omitempty"`
	Default        bool      `json:"default"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Publication is the wire snapshot of a content record.
type Publication struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	CreatorID    int64     `json:"creator_id"`
	ContentURI   string    `json:"content_uri"`
	MetadataURI  string    `json:"metadata_uri,omitempty"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Categories   []string  `json:"categories"`
	LikeCount    int64     `json:"like_count"`
	DislikeCount int64     `json:"dislike_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is the wire snapshot of a comment record.
type Comment struct {
	ID         int64     `json:"id"`
	Owner      string    `json:"owner"`
	CreatorID  int64     `json:"creator_id"`
	TargetID   int64     `json:"target_id"`
	TargetKind string    `json:"target_kind"`
	ContentURI string    `json:"content_uri"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdentityCreated is emitted when a profile is created.
type IdentityCreated struct {
	Identity      Identity `json:"identity"`
	BecameDefault bool     `json:"became_default"`
}

// IdentityImageUpdated is emitted when a profile image reference changes.
type IdentityImageUpdated struct {
	Identity Identity `json:"identity"`
}

// IdentityDefaultChanged is emitted when an owner's default identity moves.
type IdentityDefaultChanged struct {
	Identity           Identity `json:"identity"`
	PreviousIdentityID int64    `json:"previous_identity_id,omitempty"`
}

// IdentityBurned is emitted when a profile is burned. The snapshot holds the
// final pre-removal state; counts reflect the cascade repairs.
type IdentityBurned struct {
	Identity        Identity `json:"identity"`
	EdgesRemoved    int      `json:"edges_removed"`
	LikesRemoved    int      `json:"likes_removed"`
	DislikesRemoved int      `json:"dislikes_removed"`
}

// FollowChanged is emitted for both directions of the follow toggle.
type FollowChanged struct {
	Follower Identity `json:"follower"`
	Followee Identity `json:"followee"`
	TokenID  int64    `json:"token_id"`
}

// PublicationChanged is emitted for publication create/update/delete.
type PublicationChanged struct {
	Publication Publication `json:"publication"`
}

// PublicationLiked is emitted when a like commits, fee included.
type PublicationLiked struct {
	Publication Publication `json:"publication"`
	ProfileID   int64       `json:"profile_id"`
	TokenID     int64       `json:"token_id"`
	NetFee      int64       `json:"net_fee"`
	PlatformFee int64       `json:"platform_fee"`
}

// EngagementChanged is emitted for unlike, dislike, and dislike withdrawal.
type EngagementChanged struct {
	Publication Publication `json:"publication"`
	ProfileID   int64       `json:"profile_id"`
}

// CommentChanged is emitted for comment create/update/delete.
type CommentChanged struct {
	Comment Comment `json:"comment"`
}

// IdentitySnapshot converts a storage record to its wire snapshot.
func IdentitySnapshot(identity storage.Identity) Identity {
	return Identity{
		ID:             identity.ID,
		Owner:          identity.Owner,
		Handle:         identity.Handle,
		ImageURI:       identity.ImageURI,
		Default:        identity.Default,
		FollowerCount:  identity.FollowerCount,
		FollowingCount: identity.FollowingCount,
		CreatedAt:      identity.CreatedAt,
		UpdatedAt:      identity.UpdatedAt,
	}
}

// PublicationSnapshot converts a storage record to its wire snapshot.
func PublicationSnapshot(publication storage.Publication) Publication {
	categories := []string{publication.Categories.Primary}
	if publication.Categories.Secondary != "" {
		categories = append(categories, publication.Categories.Secondary)
	}
	if publication.Categories.Tertiary != "" {
		categories = append(categories, publication.Categories.Tertiary)
	}
	return Publication{
		ID:           publication.ID,
		Owner:        publication.Owner,
		CreatorID:    publication.CreatorID,
		ContentURI:   publication.ContentURI,
		MetadataURI:  publication.MetadataURI,
		Title:        publication.Title,
		Description:  publication.Description,
		Categories:   categories,
		LikeCount:    publication.LikeCount,
		DislikeCount: publication.DislikeCount,
		CreatedAt:    publication.CreatedAt,
		UpdatedAt:    publication.UpdatedAt,
	}
}

// CommentSnapshot converts a storage record to its wire snapshot.
func CommentSnapshot(comment storage.Comment) Comment {
	return Comment{
		ID:         comment.ID,
		Owner:      comment.Owner,
		CreatorID:  comment.CreatorID,
		TargetID:   comment.TargetID,
		TargetKind: string(comment.TargetKind),
		ContentURI: comment.ContentURI,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}
