// Package follow implements the directed follow graph as a single-entrypoint
// toggle with mint-on-create and burn-on-remove semantics.
package follow

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Graph executes follow operations inside one transaction.
type Graph struct {
	tx     storage.Tx
	events *event.Recorder
	clock  func() time.Time
}

// NewGraph creates a follow graph bound to one transaction.
func NewGraph(tx storage.Tx, events *event.Recorder, clock func() time.Time) *Graph {
	if clock == nil {
		clock = time.Now
	}
	return &Graph{tx: tx, events: events, clock: clock}
}

// Result carries the post-toggle edge state and both identity snapshots.
type Result struct {
	Following bool
	TokenID   int64
	Follower  storage.Identity
	Followee  storage.Identity
}

// Toggle creates the follower→followee edge when absent and removes it when
// present. The edge token is the sole source of truth for "is following";
// two sequential calls return the graph to its original state.
func (g *Graph) Toggle(ctx context.Context, caller string, followerID int64, followeeID int64) (Result, error) {
	if followerID == followeeID {
		return Result{}, apperrors.New(apperrors.CodeSelfFollowForbidden, "identity cannot follow itself")
	}
	follower, err := g.requireIdentity(ctx, followerID)
	if err != nil {
		return Result{}, err
	}
	if follower.Owner != caller {
		return Result{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the follower identity")
	}
	if _, err := g.requireIdentity(ctx, followeeID); err != nil {
		return Result{}, err
	}

	now := g.clock().UTC()
	edge, err := g.tx.GetFollowEdge(ctx, followerID, followeeID)
	switch {
	case err == nil:
		return g.remove(ctx, caller, edge, now)
	case errors.Is(err, storage.ErrNotFound):
		return g.create(ctx, caller, followerID, followeeID, now)
	default:
		return Result{}, err
	}
}

func (g *Graph) create(ctx context.Context, caller string, followerID int64, followeeID int64, now time.Time) (Result, error) {
	tokenID, err := g.tx.MintToken(ctx, caller, storage.TokenKindFollow)
	if err != nil {
		return Result{}, err
	}
	if err := g.tx.InsertFollowEdge(ctx, storage.FollowEdge{
		FollowerID: followerID,
		FolloweeID: followeeID,
		TokenID:    tokenID,
		CreatedAt:  now,
	}); err != nil {
		return Result{}, err
	}
	if err := g.tx.AdjustFollowCounts(ctx, followerID, 0, 1, now); err != nil {
		return Result{}, err
	}
	if err := g.tx.AdjustFollowCounts(ctx, followeeID, 1, 0, now); err != nil {
		return Result{}, err
	}
	return g.finish(ctx, event.TypeFollowCreated, true, tokenID, followerID, followeeID)
}

func (g *Graph) remove(ctx context.Context, caller string, edge storage.FollowEdge, now time.Time) (Result, error) {
	owner, err := g.tx.TokenOwner(ctx, edge.TokenID)
	if err != nil {
		return Result{}, err
	}
	if owner != caller {
		return Result{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the follow edge token")
	}
	if err := g.tx.BurnToken(ctx, edge.TokenID); err != nil {
		return Result{}, err
	}
	if err := g.tx.DeleteFollowEdge(ctx, edge.FollowerID, edge.FolloweeID); err != nil {
		return Result{}, err
	}
	if err := g.tx.AdjustFollowCounts(ctx, edge.FollowerID, 0, -1, now); err != nil {
		return Result{}, err
	}
	if err := g.tx.AdjustFollowCounts(ctx, edge.FolloweeID, -1, 0, now); err != nil {
		return Result{}, err
	}
	return g.finish(ctx, event.TypeFollowRemoved, false, edge.TokenID, edge.FollowerID, edge.FolloweeID)
}

func (g *Graph) finish(ctx context.Context, eventType string, following bool, tokenID int64, followerID int64, followeeID int64) (Result, error) {
	follower, err := g.tx.GetIdentity(ctx, followerID)
	if err != nil {
		return Result{}, err
	}
	followee, err := g.tx.GetIdentity(ctx, followeeID)
	if err != nil {
		return Result{}, err
	}
	if err := g.events.Record(ctx, eventType, event.FollowChanged{
		Follower: event.IdentitySnapshot(follower),
		Followee: event.IdentitySnapshot(followee),
		TokenID:  tokenID,
	}); err != nil {
		return Result{}, err
	}
	return Result{
		Following: following,
		TokenID:   tokenID,
		Follower:  follower,
		Followee:  followee,
	}, nil
}

// IsFollowing reports whether the follower→followee edge exists.
func (g *Graph) IsFollowing(ctx context.Context, followerID int64, followeeID int64) (bool, error) {
	_, err := g.tx.GetFollowEdge(ctx, followerID, followeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *Graph) requireIdentity(ctx context.Context, identityID int64) (storage.Identity, error) {
	identity, err := g.tx.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("identity %d not found", identityID))
		}
		return storage.Identity{}, err
	}
	return identity, nil
}
