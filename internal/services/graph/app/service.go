// Package app wires the graph engine: configuration, storage lifecycle, the
// transaction boundary, and whole-operation serialization.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lumenfeed/lumenfeed/internal/platform/config"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/comment"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/engagement"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/follow"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/handle"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/identity"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/publication"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
	graphsqlite "github.com/lumenfeed/lumenfeed/internal/services/graph/storage/sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config holds graph service configuration.
type Config struct {
	DBPath          string `env:"LUMENFEED_GRAPH_DB_PATH"`
	LikeFee         int64  `env:"LUMENFEED_LIKE_FEE" envDefault:"100"`
	PlatformFeeRate int64  `env:"LUMENFEED_PLATFORM_FEE_RATE" envDefault:"10"`
	TreasuryAccount string `env:"LUMENFEED_TREASURY_ACCOUNT" envDefault:"treasury"`
}

// LoadConfig reads graph configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "graph.db")
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.LikeFee <= 0 {
		return fmt.Errorf("like fee must be positive")
	}
	if c.PlatformFeeRate < 0 || c.PlatformFeeRate > 100 {
		return fmt.Errorf("platform fee rate must be between 0 and 100")
	}
	if strings.TrimSpace(c.TreasuryAccount) == "" {
		return fmt.Errorf("treasury account is required")
	}
	return nil
}

// Service executes every public graph operation as one atomic transaction.
// A single mutex serializes operations, matching the whole-operation mutual
// exclusion the engine's counter discipline relies on.
type Service struct {
	mu     sync.Mutex
	db     storage.DB
	cfg    Config
	clock  func() time.Time
	tracer trace.Tracer
}

// Open creates a graph service over a SQLite store at cfg.DBPath.
func Open(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := graphsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open graph sqlite store: %w", err)
	}
	return NewService(store, cfg), nil
}

// NewService creates a graph service over an existing store.
func NewService(db storage.DB, cfg Config) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		clock:  time.Now,
		tracer: otel.Tracer("lumenfeed/graph"),
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Service) run(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("graph service is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithTx(ctx, fn)
}

func (s *Service) recorder(tx storage.Tx) *event.Recorder {
	return event.NewRecorder(tx, s.clock)
}

// CreateIdentity registers a new profile under the caller principal.
func (s *Service) CreateIdentity(ctx context.Context, caller string, rawHandle string, imageURI string) (identity.CreateResult, error) {
	var result identity.CreateResult
	err := s.run(ctx, "graph.CreateIdentity", func(tx storage.Tx) error {
		var err error
		result, err = identity.NewRegistry(tx, s.recorder(tx), s.clock).Create(ctx, caller, rawHandle, imageURI)
		return err
	})
	return result, err
}

// UpdateIdentityImage rewrites the image reference of a caller-owned identity.
func (s *Service) UpdateIdentityImage(ctx context.Context, caller string, identityID int64, imageURI string) (storage.Identity, error) {
	var result storage.Identity
	err := s.run(ctx, "graph.UpdateIdentityImage", func(tx storage.Tx) error {
		var err error
		result, err = identity.NewRegistry(tx, s.recorder(tx), s.clock).UpdateImage(ctx, caller, identityID, imageURI)
		return err
	})
	return result, err
}

// SetDefaultIdentity flags a caller-owned identity as the owner's default.
func (s *Service) SetDefaultIdentity(ctx context.Context, caller string, identityID int64) (storage.Identity, error) {
	var result storage.Identity
	err := s.run(ctx, "graph.SetDefaultIdentity", func(tx storage.Tx) error {
		var err error
		result, err = identity.NewRegistry(tx, s.recorder(tx), s.clock).SetDefault(ctx, caller, identityID)
		return err
	})
	return result, err
}

// BurnIdentity removes a caller-owned, non-default identity with cascade
// repair of follow edges and engagement marks.
func (s *Service) BurnIdentity(ctx context.Context, caller string, identityID int64) error {
	return s.run(ctx, "graph.BurnIdentity", func(tx storage.Tx) error {
		return identity.NewRegistry(tx, s.recorder(tx), s.clock).Burn(ctx, caller, identityID)
	})
}

// ValidateHandle canonicalizes and validates a handle without mutating state.
func (s *Service) ValidateHandle(rawHandle string) (string, error) {
	return handle.Canonicalize(rawHandle)
}

// GetIdentity returns one profile record.
func (s *Service) GetIdentity(ctx context.Context, identityID int64) (storage.Identity, error) {
	var result storage.Identity
	err := s.run(ctx, "graph.GetIdentity", func(tx storage.Tx) error {
		var err error
		result, err = tx.GetIdentity(ctx, identityID)
		return err
	})
	return result, err
}

// LookupHandle resolves a canonical handle to its profile record.
func (s *Service) LookupHandle(ctx context.Context, rawHandle string) (storage.Identity, error) {
	canonical, err := handle.Canonicalize(rawHandle)
	if err != nil {
		return storage.Identity{}, err
	}
	var result storage.Identity
	err = s.run(ctx, "graph.LookupHandle", func(tx storage.Tx) error {
		var err error
		result, err = tx.GetIdentityByHandle(ctx, canonical)
		return err
	})
	return result, err
}

// Follow toggles the follower→followee edge.
func (s *Service) Follow(ctx context.Context, caller string, followerID int64, followeeID int64) (follow.Result, error) {
	var result follow.Result
	err := s.run(ctx, "graph.Follow", func(tx storage.Tx) error {
		var err error
		result, err = follow.NewGraph(tx, s.recorder(tx), s.clock).Toggle(ctx, caller, followerID, followeeID)
		return err
	})
	return result, err
}

// IsFollowing reports whether the follower→followee edge exists.
func (s *Service) IsFollowing(ctx context.Context, followerID int64, followeeID int64) (bool, error) {
	var result bool
	err := s.run(ctx, "graph.IsFollowing", func(tx storage.Tx) error {
		var err error
		result, err = follow.NewGraph(tx, s.recorder(tx), s.clock).IsFollowing(ctx, followerID, followeeID)
		return err
	})
	return result, err
}

// CreatePublication stores a new content record under a caller-owned creator
// identity.
func (s *Service) CreatePublication(ctx context.Context, caller string, creatorID int64, fields publication.Fields) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.CreatePublication", func(tx storage.Tx) error {
		var err error
		result, err = publication.NewCatalog(tx, s.recorder(tx), s.clock).Create(ctx, caller, creatorID, fields)
		return err
	})
	return result, err
}

// UpdatePublication rewrites the fields of a caller-authorized publication.
func (s *Service) UpdatePublication(ctx context.Context, caller string, publicationID int64, fields publication.Fields) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.UpdatePublication", func(tx storage.Tx) error {
		var err error
		result, err = publication.NewCatalog(tx, s.recorder(tx), s.clock).Update(ctx, caller, publicationID, fields)
		return err
	})
	return result, err
}

// DeletePublication removes a caller-authorized publication.
func (s *Service) DeletePublication(ctx context.Context, caller string, publicationID int64) error {
	return s.run(ctx, "graph.DeletePublication", func(tx storage.Tx) error {
		return publication.NewCatalog(tx, s.recorder(tx), s.clock).Delete(ctx, caller, publicationID)
	})
}

// GetPublication returns one content record.
func (s *Service) GetPublication(ctx context.Context, publicationID int64) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.GetPublication", func(tx storage.Tx) error {
		var err error
		result, err = tx.GetPublication(ctx, publicationID)
		return err
	})
	return result, err
}

// ListPublicationsByCreator returns every content record of one identity.
func (s *Service) ListPublicationsByCreator(ctx context.Context, creatorID int64) ([]storage.Publication, error) {
	var result []storage.Publication
	err := s.run(ctx, "graph.ListPublicationsByCreator", func(tx storage.Tx) error {
		var err error
		result, err = tx.ListPublicationsByCreator(ctx, creatorID)
		return err
	})
	return result, err
}

func (s *Service) engagementConfig() engagement.Config {
	return engagement.Config{
		LikeFee:         s.cfg.LikeFee,
		PlatformFeeRate: s.cfg.PlatformFeeRate,
		TreasuryAccount: s.cfg.TreasuryAccount,
	}
}

// Like records a paid like with atomic fee distribution to the creator.
func (s *Service) Like(ctx context.Context, caller string, profileID int64, publicationID int64, payment int64) (engagement.LikeResult, error) {
	var result engagement.LikeResult
	err := s.run(ctx, "graph.Like", func(tx storage.Tx) error {
		var err error
		result, err = engagement.NewEngine(tx, s.recorder(tx), s.engagementConfig(), s.clock).Like(ctx, caller, profileID, publicationID, payment)
		return err
	})
	return result, err
}

// Unlike burns the caller-owned like record; no fee is refunded.
func (s *Service) Unlike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.Unlike", func(tx storage.Tx) error {
		var err error
		result, err = engagement.NewEngine(tx, s.recorder(tx), s.engagementConfig(), s.clock).Unlike(ctx, caller, profileID, publicationID)
		return err
	})
	return result, err
}

// Dislike sets the dislike flag, clearing any standing like.
func (s *Service) Dislike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.Dislike", func(tx storage.Tx) error {
		var err error
		result, err = engagement.NewEngine(tx, s.recorder(tx), s.engagementConfig(), s.clock).Dislike(ctx, caller, profileID, publicationID)
		return err
	})
	return result, err
}

// UndoDislike clears the dislike flag.
func (s *Service) UndoDislike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	var result storage.Publication
	err := s.run(ctx, "graph.UndoDislike", func(tx storage.Tx) error {
		var err error
		result, err = engagement.NewEngine(tx, s.recorder(tx), s.engagementConfig(), s.clock).UndoDislike(ctx, caller, profileID, publicationID)
		return err
	})
	return result, err
}

// EngagementState reports the like/dislike state of one pair.
func (s *Service) EngagementState(ctx context.Context, profileID int64, publicationID int64) (engagement.State, error) {
	var result engagement.State
	err := s.run(ctx, "graph.EngagementState", func(tx storage.Tx) error {
		var err error
		result, err = engagement.NewEngine(tx, s.recorder(tx), s.engagementConfig(), s.clock).StateOf(ctx, profileID, publicationID)
		return err
	})
	return result, err
}

// CreateComment stores a new comment under a caller-owned creator identity.
func (s *Service) CreateComment(ctx context.Context, caller string, creatorID int64, targetID int64, targetKind storage.TargetKind, contentURI string) (storage.Comment, error) {
	var result storage.Comment
	err := s.run(ctx, "graph.CreateComment", func(tx storage.Tx) error {
		var err error
		result, err = comment.NewThreads(tx, s.recorder(tx), s.clock).Create(ctx, caller, creatorID, targetID, targetKind, contentURI)
		return err
	})
	return result, err
}

// UpdateComment rewrites the content reference of a caller-owned comment.
func (s *Service) UpdateComment(ctx context.Context, caller string, commentID int64, contentURI string) (storage.Comment, error) {
	var result storage.Comment
	err := s.run(ctx, "graph.UpdateComment", func(tx storage.Tx) error {
		var err error
		result, err = comment.NewThreads(tx, s.recorder(tx), s.clock).Update(ctx, caller, commentID, contentURI)
		return err
	})
	return result, err
}

// DeleteComment removes a caller-owned comment.
func (s *Service) DeleteComment(ctx context.Context, caller string, commentID int64) error {
	return s.run(ctx, "graph.DeleteComment", func(tx storage.Tx) error {
		return comment.NewThreads(tx, s.recorder(tx), s.clock).Delete(ctx, caller, commentID)
	})
}

// GetComment returns one comment record.
func (s *Service) GetComment(ctx context.Context, commentID int64) (storage.Comment, error) {
	var result storage.Comment
	err := s.run(ctx, "graph.GetComment", func(tx storage.Tx) error {
		var err error
		result, err = tx.GetComment(ctx, commentID)
		return err
	})
	return result, err
}

// ListCommentsByTarget returns every comment attached to one target record.
func (s *Service) ListCommentsByTarget(ctx context.Context, kind storage.TargetKind, targetID int64) ([]storage.Comment, error) {
	var result []storage.Comment
	err := s.run(ctx, "graph.ListCommentsByTarget", func(tx storage.Tx) error {
		var err error
		result, err = tx.ListCommentsByTarget(ctx, kind, targetID)
		return err
	})
	return result, err
}

// Deposit credits one account. Exposed for seeding and local development.
func (s *Service) Deposit(ctx context.Context, address string, amount int64) error {
	return s.run(ctx, "graph.Deposit", func(tx storage.Tx) error {
		return tx.Deposit(ctx, address, amount)
	})
}

// Balance returns one account balance.
func (s *Service) Balance(ctx context.Context, address string) (int64, error) {
	var result int64
	err := s.run(ctx, "graph.Balance", func(tx storage.Tx) error {
		var err error
		result, err = tx.Balance(ctx, address)
		return err
	})
	return result, err
}

// Events returns up to limit feed entries after the given sequence number.
func (s *Service) Events(ctx context.Context, afterSeq int64, limit int) ([]storage.Event, error) {
	var result []storage.Event
	err := s.run(ctx, "graph.Events", func(tx storage.Tx) error {
		var err error
		result, err = tx.ListEvents(ctx, afterSeq, limit)
		return err
	})
	return result, err
}
