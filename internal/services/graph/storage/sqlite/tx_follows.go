package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

func scanFollowEdge(row *sql.Row) (storage.FollowEdge, error) {
	var (
		edge      storage.FollowEdge
		createdAt int64
	)
	err := row.Scan(&edge.FollowerID, &edge.FolloweeID, &edge.TokenID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.FollowEdge{}, storage.ErrNotFound
		}
		return storage.FollowEdge{}, err
	}
	edge.CreatedAt = fromMillis(createdAt)
	return edge, nil
}

// InsertFollowEdge stores one directed follow edge keyed by identity pair.
func (t *Tx) InsertFollowEdge(ctx context.Context, edge storage.FollowEdge) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	if edge.FollowerID == 0 || edge.FolloweeID == 0 {
		return fmt.Errorf("follow edge identity ids are required")
	}
	if edge.TokenID == 0 {
		return fmt.Errorf("follow edge token id is required")
	}
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO follows (follower_id, followee_id, token_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		edge.FollowerID,
		edge.FolloweeID,
		edge.TokenID,
		toMillis(edge.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert follow edge: %w", err)
	}
	return nil
}

// GetFollowEdge returns one follow edge by identity pair.
func (t *Tx) GetFollowEdge(ctx context.Context, followerID int64, followeeID int64) (storage.FollowEdge, error) {
	if err := t.ready(ctx); err != nil {
		return storage.FollowEdge{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT follower_id, followee_id, token_id, created_at
		 FROM follows
		 WHERE follower_id = ? AND followee_id = ?`,
		followerID,
		followeeID,
	)
	edge, err := scanFollowEdge(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.FollowEdge{}, storage.ErrNotFound
		}
		return storage.FollowEdge{}, fmt.Errorf("get follow edge: %w", err)
	}
	return edge, nil
}

// GetFollowEdgeByToken returns one follow edge by minted token id.
func (t *Tx) GetFollowEdgeByToken(ctx context.Context, tokenID int64) (storage.FollowEdge, error) {
	if err := t.ready(ctx); err != nil {
		return storage.FollowEdge{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT follower_id, followee_id, token_id, created_at
		 FROM follows
		 WHERE token_id = ?`,
		tokenID,
	)
	edge, err := scanFollowEdge(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.FollowEdge{}, storage.ErrNotFound
		}
		return storage.FollowEdge{}, fmt.Errorf("get follow edge by token: %w", err)
	}
	return edge, nil
}

// DeleteFollowEdge removes one follow edge by identity pair.
func (t *Tx) DeleteFollowEdge(ctx context.Context, followerID int64, followeeID int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID,
		followeeID,
	)
	if err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	return requireRow(result, "delete follow edge")
}

// ListFollowEdgesByIdentity returns every edge where the identity is either
// endpoint. Used by the identity burn cascade.
func (t *Tx) ListFollowEdgesByIdentity(ctx context.Context, identityID int64) ([]storage.FollowEdge, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT follower_id, followee_id, token_id, created_at
		 FROM follows
		 WHERE follower_id = ? OR followee_id = ?
		 ORDER BY token_id ASC`,
		identityID,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list follow edges: %w", err)
	}
	defer rows.Close()

	var edges []storage.FollowEdge
	for rows.Next() {
		var (
			edge      storage.FollowEdge
			createdAt int64
		)
		if err := rows.Scan(&edge.FollowerID, &edge.FolloweeID, &edge.TokenID, &createdAt); err != nil {
			return nil, fmt.Errorf("list follow edges: %w", err)
		}
		edge.CreatedAt = fromMillis(createdAt)
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list follow edges: %w", err)
	}
	return edges, nil
}
