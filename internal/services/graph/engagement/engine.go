// Package engagement implements the like/dislike state machine with counter
// maintenance and atomic fee distribution.
//
// Per (publication, profile) pair the states neutral, liked, and disliked are
// mutually exclusive. Like is token-backed; dislike is a pure flag.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Config carries the fee policy applied to every like.
type Config struct {
	// LikeFee is the exact payment a like must carry.
	LikeFee int64
	// PlatformFeeRate is the integer percentage retained by the platform.
	PlatformFeeRate int64
	// TreasuryAccount receives the retained platform share.
	TreasuryAccount string
}

// Engine executes engagement operations inside one transaction.
type Engine struct {
	tx     storage.Tx
	events *event.Recorder
	cfg    Config
	clock  func() time.Time
}

// NewEngine creates an engine bound to one transaction.
func NewEngine(tx storage.Tx, events *event.Recorder, cfg Config, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{tx: tx, events: events, cfg: cfg, clock: clock}
}

// LikeResult carries the post-like publication state and the distributed fee.
type LikeResult struct {
	Publication storage.Publication
	TokenID     int64
	NetFee      int64
	PlatformFee int64
}

// State reports the engagement state of one (profile, publication) pair.
type State struct {
	Liked    bool
	Disliked bool
}

// Like records a paid like. The payment must equal the configured fee
// exactly; a standing dislike is cleared first. All internal effects are
// issued before the value transfer so a reentrant read observes the new
// counts, and a failed transfer rolls the whole operation back.
func (e *Engine) Like(ctx context.Context, caller string, profileID int64, publicationID int64, payment int64) (LikeResult, error) {
	profile, err := e.requireProfile(ctx, caller, profileID)
	if err != nil {
		return LikeResult{}, err
	}
	publication, err := e.requirePublication(ctx, publicationID)
	if err != nil {
		return LikeResult{}, err
	}
	if payment != e.cfg.LikeFee {
		return LikeResult{}, apperrors.New(apperrors.CodeBadPayment,
			fmt.Sprintf("payment %d does not match the like fee %d", payment, e.cfg.LikeFee))
	}
	if _, err := e.tx.GetLike(ctx, publicationID, profileID); err == nil {
		return LikeResult{}, apperrors.New(apperrors.CodeAlreadyLiked, "publication is already liked by this profile")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return LikeResult{}, err
	}

	now := e.clock().UTC()
	disliked, err := e.tx.HasDislike(ctx, publicationID, profileID)
	if err != nil {
		return LikeResult{}, err
	}
	if disliked {
		if err := e.tx.ClearDislike(ctx, publicationID, profileID); err != nil {
			return LikeResult{}, err
		}
		if err := e.tx.AdjustEngagementCounts(ctx, publicationID, 0, -1, now); err != nil {
			return LikeResult{}, err
		}
	}

	tokenID, err := e.tx.MintToken(ctx, caller, storage.TokenKindLike)
	if err != nil {
		return LikeResult{}, err
	}
	if err := e.tx.InsertLike(ctx, storage.LikeRecord{
		PublicationID: publicationID,
		ProfileID:     profileID,
		TokenID:       tokenID,
		CreatedAt:     now,
	}); err != nil {
		return LikeResult{}, err
	}
	if err := e.tx.AdjustEngagementCounts(ctx, publicationID, 1, 0, now); err != nil {
		return LikeResult{}, err
	}

	platformFee := payment * e.cfg.PlatformFeeRate / 100
	netFee := payment - platformFee
	payout := e.resolvePayout(ctx, publication)

	// Internal state is fully written; the transfer is the last step and no
	// internal state is re-read after it.
	if err := e.tx.Transfer(ctx, caller, payout, netFee); err != nil {
		return LikeResult{}, wrapPaymentError(err)
	}
	if platformFee > 0 {
		if err := e.tx.Transfer(ctx, caller, e.cfg.TreasuryAccount, platformFee); err != nil {
			return LikeResult{}, wrapPaymentError(err)
		}
	}

	publication, err = e.tx.GetPublication(ctx, publicationID)
	if err != nil {
		return LikeResult{}, err
	}
	if err := e.events.Record(ctx, event.TypePublicationLiked, event.PublicationLiked{
		Publication: event.PublicationSnapshot(publication),
		ProfileID:   profile.ID,
		TokenID:     tokenID,
		NetFee:      netFee,
		PlatformFee: platformFee,
	}); err != nil {
		return LikeResult{}, err
	}
	return LikeResult{
		Publication: publication,
		TokenID:     tokenID,
		NetFee:      netFee,
		PlatformFee: platformFee,
	}, nil
}

// Unlike burns the caller-owned like record and repairs the counter. The fee
// is not refunded.
func (e *Engine) Unlike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	if _, err := e.requireProfile(ctx, caller, profileID); err != nil {
		return storage.Publication{}, err
	}
	like, err := e.tx.GetLike(ctx, publicationID, profileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Publication{}, apperrors.New(apperrors.CodeNotFound, "like record not found")
		}
		return storage.Publication{}, err
	}
	owner, err := e.tx.TokenOwner(ctx, like.TokenID)
	if err != nil {
		return storage.Publication{}, err
	}
	if owner != caller {
		return storage.Publication{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the like record")
	}

	now := e.clock().UTC()
	if err := e.tx.BurnToken(ctx, like.TokenID); err != nil {
		return storage.Publication{}, err
	}
	if err := e.tx.DeleteLike(ctx, publicationID, profileID); err != nil {
		return storage.Publication{}, err
	}
	if err := e.tx.AdjustEngagementCounts(ctx, publicationID, -1, 0, now); err != nil {
		return storage.Publication{}, err
	}
	return e.finish(ctx, event.TypePublicationUnliked, publicationID, profileID)
}

// Dislike sets the dislike flag and clears any standing like for the pair;
// dislike takes priority over like.
func (e *Engine) Dislike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	if _, err := e.requireProfile(ctx, caller, profileID); err != nil {
		return storage.Publication{}, err
	}
	if _, err := e.requirePublication(ctx, publicationID); err != nil {
		return storage.Publication{}, err
	}
	disliked, err := e.tx.HasDislike(ctx, publicationID, profileID)
	if err != nil {
		return storage.Publication{}, err
	}
	if disliked {
		return storage.Publication{}, apperrors.New(apperrors.CodeAlreadyDisliked, "publication is already disliked by this profile")
	}

	now := e.clock().UTC()
	if like, err := e.tx.GetLike(ctx, publicationID, profileID); err == nil {
		if err := e.tx.BurnToken(ctx, like.TokenID); err != nil {
			return storage.Publication{}, err
		}
		if err := e.tx.DeleteLike(ctx, publicationID, profileID); err != nil {
			return storage.Publication{}, err
		}
		if err := e.tx.AdjustEngagementCounts(ctx, publicationID, -1, 0, now); err != nil {
			return storage.Publication{}, err
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.Publication{}, err
	}

	if err := e.tx.SetDislike(ctx, storage.Dislike{
		PublicationID: publicationID,
		ProfileID:     profileID,
		CreatedAt:     now,
	}); err != nil {
		return storage.Publication{}, err
	}
	if err := e.tx.AdjustEngagementCounts(ctx, publicationID, 0, 1, now); err != nil {
		return storage.Publication{}, err
	}
	return e.finish(ctx, event.TypePublicationDisliked, publicationID, profileID)
}

// UndoDislike clears the dislike flag and repairs the counter.
func (e *Engine) UndoDislike(ctx context.Context, caller string, profileID int64, publicationID int64) (storage.Publication, error) {
	if _, err := e.requireProfile(ctx, caller, profileID); err != nil {
		return storage.Publication{}, err
	}
	disliked, err := e.tx.HasDislike(ctx, publicationID, profileID)
	if err != nil {
		return storage.Publication{}, err
	}
	if !disliked {
		return storage.Publication{}, apperrors.New(apperrors.CodeNothingChanged, "no dislike stands for this pair")
	}

	now := e.clock().UTC()
	if err := e.tx.ClearDislike(ctx, publicationID, profileID); err != nil {
		return storage.Publication{}, err
	}
	if err := e.tx.AdjustEngagementCounts(ctx, publicationID, 0, -1, now); err != nil {
		return storage.Publication{}, err
	}
	return e.finish(ctx, event.TypeDislikeWithdrawn, publicationID, profileID)
}

// StateOf reports the engagement state of one (profile, publication) pair.
func (e *Engine) StateOf(ctx context.Context, profileID int64, publicationID int64) (State, error) {
	var state State
	if _, err := e.tx.GetLike(ctx, publicationID, profileID); err == nil {
		state.Liked = true
	} else if !errors.Is(err, storage.ErrNotFound) {
		return State{}, err
	}
	disliked, err := e.tx.HasDislike(ctx, publicationID, profileID)
	if err != nil {
		return State{}, err
	}
	state.Disliked = disliked
	return state, nil
}

func (e *Engine) finish(ctx context.Context, eventType string, publicationID int64, profileID int64) (storage.Publication, error) {
	publication, err := e.tx.GetPublication(ctx, publicationID)
	if err != nil {
		return storage.Publication{}, err
	}
	if err := e.events.Record(ctx, eventType, event.EngagementChanged{
		Publication: event.PublicationSnapshot(publication),
		ProfileID:   profileID,
	}); err != nil {
		return storage.Publication{}, err
	}
	return publication, nil
}

// resolvePayout returns the creator identity's owner principal, falling back
// to the publication owner when the creator identity has been burned.
func (e *Engine) resolvePayout(ctx context.Context, publication storage.Publication) string {
	creator, err := e.tx.GetIdentity(ctx, publication.CreatorID)
	if err != nil {
		return publication.Owner
	}
	return creator.Owner
}

func (e *Engine) requireProfile(ctx context.Context, caller string, profileID int64) (storage.Identity, error) {
	profile, err := e.tx.GetIdentity(ctx, profileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("identity %d not found", profileID))
		}
		return storage.Identity{}, err
	}
	if profile.Owner != caller {
		return storage.Identity{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the profile")
	}
	return profile, nil
}

func (e *Engine) requirePublication(ctx context.Context, publicationID int64) (storage.Publication, error) {
	publication, err := e.tx.GetPublication(ctx, publicationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Publication{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("publication %d not found", publicationID))
		}
		return storage.Publication{}, err
	}
	return publication, nil
}

func wrapPaymentError(err error) error {
	if errors.Is(err, storage.ErrInsufficientFunds) {
		return apperrors.Wrap(apperrors.CodePaymentFailed, "liker cannot cover the fee", err)
	}
	return apperrors.Wrap(apperrors.CodePaymentFailed, "fee transfer failed", err)
}
