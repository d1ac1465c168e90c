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

// Ledger substrate methods: tokens and accounts live in the same database so
// mint, burn, and pay participate in the caller's transaction.

// MintToken allocates a new token owned by the given principal and returns its
// id. Ids are monotonic and never reused, even after a burn.
func (t *Tx) MintToken(ctx context.Context, owner string, kind string) (int64, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return 0, fmt.Errorf("token owner is required")
	}
	if kind != storage.TokenKindFollow && kind != storage.TokenKindLike {
		return 0, fmt.Errorf("token kind %q is invalid", kind)
	}
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO tokens (owner, kind, created_at) VALUES (?, ?, ?)`,
		owner,
		kind,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("mint token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("mint token id: %w", err)
	}
	return id, nil
}

// BurnToken removes one token. The id is retired permanently.
func (t *Tx) BurnToken(ctx context.Context, tokenID int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, tokenID)
	if err != nil {
		return fmt.Errorf("burn token: %w", err)
	}
	return requireRow(result, "burn token")
}

// TokenOwner returns the owning principal of one live token.
func (t *Tx) TokenOwner(ctx context.Context, tokenID int64) (string, error) {
	if err := t.ready(ctx); err != nil {
		return "", err
	}
	var owner string
	row := t.tx.QueryRowContext(ctx, `SELECT owner FROM tokens WHERE id = ?`, tokenID)
	if err := row.Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("token owner: %w", err)
	}
	return owner, nil
}

// TokenExists reports whether one token is live.
func (t *Tx) TokenExists(ctx context.Context, tokenID int64) (bool, error) {
	if err := t.ready(ctx); err != nil {
		return false, err
	}
	var found int
	row := t.tx.QueryRowContext(ctx, `SELECT 1 FROM tokens WHERE id = ?`, tokenID)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("token exists: %w", err)
	}
	return true, nil
}

// Deposit credits one account, creating it when absent.
func (t *Tx) Deposit(ctx context.Context, address string, amount int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("account address is required")
	}
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO accounts (address, balance, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   balance = balance + excluded.balance,
		   updated_at = excluded.updated_at`,
		address,
		amount,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	return nil
}

// Transfer moves funds between accounts. It fails with ErrInsufficientFunds
// when the sender cannot cover the amount; a zero amount is a no-op.
func (t *Tx) Transfer(ctx context.Context, from string, to string, amount int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return fmt.Errorf("transfer addresses are required")
	}
	if amount < 0 {
		return fmt.Errorf("transfer amount must not be negative")
	}
	if amount == 0 {
		return nil
	}

	balance, err := t.Balance(ctx, from)
	if err != nil {
		return err
	}
	if balance < amount {
		return storage.ErrInsufficientFunds
	}

	now := time.Now().UTC().UnixMilli()
	if _, err := t.tx.ExecContext(
		ctx,
		`UPDATE accounts SET balance = balance - ?, updated_at = ? WHERE address = ?`,
		amount,
		now,
		from,
	); err != nil {
		return fmt.Errorf("transfer debit: %w", err)
	}
	if _, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO accounts (address, balance, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   balance = balance + excluded.balance,
		   updated_at = excluded.updated_at`,
		to,
		amount,
		now,
	); err != nil {
		return fmt.Errorf("transfer credit: %w", err)
	}
	return nil
}

// Balance returns one account balance; absent accounts hold zero.
func (t *Tx) Balance(ctx context.Context, address string) (int64, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	var balance int64
	row := t.tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE address = ?`, strings.TrimSpace(address))
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}
