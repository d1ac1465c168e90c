// Package storage defines persistence contracts for the social graph state.
//
// Identifiers are dense auto-incrementing integers allocated by the backing
// store; identifier 0 is the reserved "absent" sentinel and is never assigned
// to a live record.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds indicates an account cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Token kinds minted by the graph core.
const (
	TokenKindFollow = "follow"
	TokenKindLike   = "like"
)

// TargetKind tags what a comment is attached to.
type TargetKind string

const (
	TargetPublication TargetKind = "publication"
	TargetComment     TargetKind = "comment"
)

// Valid reports whether the target kind is one of the known values.
func (k TargetKind) Valid() bool {
	return k == TargetPublication || k == TargetComment
}

// Identity stores one profile: owner principal, unique handle, image
// reference, default flag, and denormalized follow counters.
type Identity struct {
	ID             int64
	Owner          string
	Handle         string
	ImageURI       string
	Default        bool
	FollowerCount  int64
	FollowingCount int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Categories stores the publication category triple. Primary is required;
// an empty Secondary forces an empty Tertiary.
type Categories struct {
	Primary   string
	Secondary string
	Tertiary  string
}

// Publication stores one content record with denormalized engagement counters.
type Publication struct {
	ID           int64
	Owner        string
	CreatorID    int64
	ContentURI   string
	MetadataURI  string
	Title        string
	Description  string
	Categories   Categories
	LikeCount    int64
	DislikeCount int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Comment stores one comment attached to a publication or another comment.
type Comment struct {
	ID         int64
	Owner      string
	CreatorID  int64
	TargetID   int64
	TargetKind TargetKind
	ContentURI string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FollowEdge stores one directed follow relationship. The minted token id is
// the single source of truth for edge existence.
type FollowEdge struct {
	FollowerID int64
	FolloweeID int64
	TokenID    int64
	CreatedAt  time.Time
}

// LikeRecord stores one like for a (publication, profile) pair. The minted
// token id is the uniqueness guard against double-liking.
type LikeRecord struct {
	PublicationID int64
	ProfileID     int64
	TokenID       int64
	CreatedAt     time.Time
}

// Dislike stores one dislike flag for a (publication, profile) pair.
type Dislike struct {
	PublicationID int64
	ProfileID     int64
	CreatedAt     time.Time
}

// Event stores one entry of the durable read-model feed.
type Event struct {
	Seq       int64
	ID        string
	Type      string
	Payload   []byte
	Timestamp time.Time
}

// IdentityStore persists profile records and their follow counters.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, identity Identity) (int64, error)
	GetIdentity(ctx context.Context, id int64) (Identity, error)
	GetIdentityByHandle(ctx context.Context, handle string) (Identity, error)
	GetDefaultIdentity(ctx context.Context, owner string) (Identity, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	SetIdentityImage(ctx context.Context, id int64, imageURI string, updatedAt time.Time) error
	SetIdentityDefault(ctx context.Context, id int64, isDefault bool, updatedAt time.Time) error
	AdjustFollowCounts(ctx context.Context, id int64, followerDelta int64, followingDelta int64, updatedAt time.Time) error
	DeleteIdentity(ctx context.Context, id int64) error
}

// FollowStore persists directed follow edges keyed by identity pair with a
// reverse lookup by minted token id.
type FollowStore interface {
	InsertFollowEdge(ctx context.Context, edge FollowEdge) error
	GetFollowEdge(ctx context.Context, followerID int64, followeeID int64) (FollowEdge, error)
	GetFollowEdgeByToken(ctx context.Context, tokenID int64) (FollowEdge, error)
	DeleteFollowEdge(ctx context.Context, followerID int64, followeeID int64) error
	ListFollowEdgesByIdentity(ctx context.Context, identityID int64) ([]FollowEdge, error)
}

// PublicationStore persists content records and their engagement counters.
type PublicationStore interface {
	InsertPublication(ctx context.Context, publication Publication) (int64, error)
	GetPublication(ctx context.Context, id int64) (Publication, error)
	UpdatePublicationFields(ctx context.Context, publication Publication) error
	AdjustEngagementCounts(ctx context.Context, id int64, likeDelta int64, dislikeDelta int64, updatedAt time.Time) error
	DeletePublication(ctx context.Context, id int64) error
	ListPublicationsByCreator(ctx context.Context, creatorID int64) ([]Publication, error)
}

// EngagementStore persists like records and dislike flags.
type EngagementStore interface {
	InsertLike(ctx context.Context, like LikeRecord) error
	GetLike(ctx context.Context, publicationID int64, profileID int64) (LikeRecord, error)
	DeleteLike(ctx context.Context, publicationID int64, profileID int64) error
	ListLikesByProfile(ctx context.Context, profileID int64) ([]LikeRecord, error)
	SetDislike(ctx context.Context, dislike Dislike) error
	HasDislike(ctx context.Context, publicationID int64, profileID int64) (bool, error)
	ClearDislike(ctx context.Context, publicationID int64, profileID int64) error
	ListDislikesByProfile(ctx context.Context, profileID int64) ([]Dislike, error)
}

// CommentStore persists comment records.
type CommentStore interface {
	InsertComment(ctx context.Context, comment Comment) (int64, error)
	GetComment(ctx context.Context, id int64) (Comment, error)
	SetCommentContent(ctx context.Context, id int64, contentURI string, updatedAt time.Time) error
	DeleteComment(ctx context.Context, id int64) error
	ListCommentsByTarget(ctx context.Context, kind TargetKind, targetID int64) ([]Comment, error)
}

// TokenStore is the ownership substrate consumed by the graph core. Tokens are
// non-transferable by construction: no transfer operation exists.
type TokenStore interface {
	MintToken(ctx context.Context, owner string, kind string) (int64, error)
	BurnToken(ctx context.Context, tokenID int64) error
	TokenOwner(ctx context.Context, tokenID int64) (string, error)
	TokenExists(ctx context.Context, tokenID int64) (bool, error)
}

// AccountStore is the value-transfer substrate consumed by the graph core.
// Transfers participate in the caller's transaction and fail atomically.
type AccountStore interface {
	Deposit(ctx context.Context, address string, amount int64) error
	Transfer(ctx context.Context, from string, to string, amount int64) error
	Balance(ctx context.Context, address string) (int64, error)
}

// EventStore persists the ordered read-model event feed.
type EventStore interface {
	AppendEvent(ctx context.Context, evt Event) (Event, error)
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]Event, error)
}

// Tx bundles every store contract over one atomic transaction.
type Tx interface {
	IdentityStore
	FollowStore
	PublicationStore
	EngagementStore
	CommentStore
	TokenStore
	AccountStore
	EventStore
}

// DB opens transactions against shared indexed storage. The callback's error
// rolls the whole transaction back; a nil return commits it.
type DB interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
