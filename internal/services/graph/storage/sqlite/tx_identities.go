package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

const identityColumns = `id, owner, handle, image_uri, is_default, follower_count, following_count, created_at, updated_at`

func scanIdentity(row *sql.Row) (storage.Identity, error) {
	var (
		identity  storage.Identity
		isDefault int64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&identity.ID,
		&identity.Owner,
		&identity.Handle,
		&identity.ImageURI,
		&isDefault,
		&identity.FollowerCount,
		&identity.FollowingCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, err
	}
	identity.Default = isDefault != 0
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updatedAt)
	return identity, nil
}

// InsertIdentity stores one profile record and returns its new identifier.
func (t *Tx) InsertIdentity(ctx context.Context, identity storage.Identity) (int64, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	if strings.TrimSpace(identity.Owner) == "" {
		return 0, fmt.Errorf("identity owner is required")
	}
	if strings.TrimSpace(identity.Handle) == "" {
		return 0, fmt.Errorf("identity handle is required")
	}
	isDefault := int64(0)
	if identity.Default {
		isDefault = 1
	}
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO identities (owner, handle, image_uri, is_default, follower_count, following_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		identity.Owner,
		identity.Handle,
		identity.ImageURI,
		isDefault,
		toMillis(identity.CreatedAt),
		toMillis(identity.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert identity id: %w", err)
	}
	return id, nil
}

// GetIdentity returns one profile record by identifier.
func (t *Tx) GetIdentity(ctx context.Context, id int64) (storage.Identity, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Identity{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`,
		id,
	)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

// GetIdentityByHandle returns one profile record by canonical handle.
func (t *Tx) GetIdentityByHandle(ctx context.Context, handle string) (storage.Identity, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Identity{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+identityColumns+` FROM identities WHERE handle = ?`,
		handle,
	)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, fmt.Errorf("get identity by handle: %w", err)
	}
	return identity, nil
}

// GetDefaultIdentity returns the owner's current default identity.
func (t *Tx) GetDefaultIdentity(ctx context.Context, owner string) (storage.Identity, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Identity{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+identityColumns+` FROM identities WHERE owner = ? AND is_default = 1`,
		owner,
	)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, fmt.Errorf("get default identity: %w", err)
	}
	return identity, nil
}

// HandleExists reports whether a live identity already claims the handle.
func (t *Tx) HandleExists(ctx context.Context, handle string) (bool, error) {
	if err := t.ready(ctx); err != nil {
		return false, err
	}
	var found int
	row := t.tx.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE handle = ?`, handle)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check handle: %w", err)
	}
	return true, nil
}

// SetIdentityImage rewrites the image reference of one profile record.
func (t *Tx) SetIdentityImage(ctx context.Context, id int64, imageURI string, updatedAt time.Time) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE identities SET image_uri = ?, updated_at = ? WHERE id = ?`,
		imageURI,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("set identity image: %w", err)
	}
	return requireRow(result, "set identity image")
}

// SetIdentityDefault rewrites the default flag of one profile record.
func (t *Tx) SetIdentityDefault(ctx context.Context, id int64, isDefault bool, updatedAt time.Time) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	flag := int64(0)
	if isDefault {
		flag = 1
	}
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE identities SET is_default = ?, updated_at = ? WHERE id = ?`,
		flag,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("set identity default: %w", err)
	}
	return requireRow(result, "set identity default")
}

// AdjustFollowCounts applies deltas to the denormalized follow counters,
// flooring both at zero.
func (t *Tx) AdjustFollowCounts(ctx context.Context, id int64, followerDelta int64, followingDelta int64, updatedAt time.Time) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE identities
		 SET follower_count = MAX(follower_count + ?, 0),
		     following_count = MAX(following_count + ?, 0),
		     updated_at = ?
		 WHERE id = ?`,
		followerDelta,
		followingDelta,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("adjust follow counts: %w", err)
	}
	return nil
}

// DeleteIdentity removes one profile record.
func (t *Tx) DeleteIdentity(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return requireRow(result, "delete identity")
}

func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
