package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/graph.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestIdentityRoundTripAndHandleUniqueness(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	var aliceID int64
	err := store.WithTx(ctx, func(tx storage.Tx) error {
		id, err := tx.InsertIdentity(ctx, storage.Identity{
			Owner:     "owner-1",
			Handle:    "alice",
			ImageURI:  "ipfs://img/alice",
			Default:   true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		aliceID = id
		return nil
	})
	if err != nil {
		t.Fatalf("insert alice: %v", err)
	}
	if aliceID == 0 {
		t.Fatal("insert alice returned id 0")
	}

	err = store.WithTx(ctx, func(tx storage.Tx) error {
		got, err := tx.GetIdentity(ctx, aliceID)
		if err != nil {
			return err
		}
		if got.Handle != "alice" || got.Owner != "owner-1" || !got.Default {
			t.Fatalf("identity = %+v, want alice/owner-1/default", got)
		}
		if !got.CreatedAt.Equal(now) {
			t.Fatalf("created at = %v, want %v", got.CreatedAt, now)
		}
		byHandle, err := tx.GetIdentityByHandle(ctx, "alice")
		if err != nil {
			return err
		}
		if byHandle.ID != aliceID {
			t.Fatalf("lookup by handle = %d, want %d", byHandle.ID, aliceID)
		}
		byDefault, err := tx.GetDefaultIdentity(ctx, "owner-1")
		if err != nil {
			return err
		}
		if byDefault.ID != aliceID {
			t.Fatalf("default identity = %d, want %d", byDefault.ID, aliceID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read alice: %v", err)
	}

	err = store.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.InsertIdentity(ctx, storage.Identity{
			Owner:     "owner-2",
			Handle:    "alice",
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate handle error = %v, want ErrAlreadyExists", err)
	}
}

func TestFollowCountersFloorAtZero(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	var id int64
	err := store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertIdentity(ctx, storage.Identity{
			Owner: "owner-1", Handle: "bob", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustFollowCounts(ctx, id, -5, -5, now); err != nil {
			return err
		}
		got, err := tx.GetIdentity(ctx, id)
		if err != nil {
			return err
		}
		if got.FollowerCount != 0 || got.FollowingCount != 0 {
			t.Fatalf("counts = %d/%d, want 0/0", got.FollowerCount, got.FollowingCount)
		}
		if err := tx.AdjustFollowCounts(ctx, id, 2, 1, now); err != nil {
			return err
		}
		got, err = tx.GetIdentity(ctx, id)
		if err != nil {
			return err
		}
		if got.FollowerCount != 2 || got.FollowingCount != 1 {
			t.Fatalf("counts = %d/%d, want 2/1", got.FollowerCount, got.FollowingCount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("adjust counts: %v", err)
	}
}

func TestFollowEdgeRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		tokenID, err := tx.MintToken(ctx, "owner-1", storage.TokenKindFollow)
		if err != nil {
			return err
		}
		edge := storage.FollowEdge{FollowerID: 1, FolloweeID: 2, TokenID: tokenID, CreatedAt: now}
		if err := tx.InsertFollowEdge(ctx, edge); err != nil {
			return err
		}
		got, err := tx.GetFollowEdge(ctx, 1, 2)
		if err != nil {
			return err
		}
		if got.TokenID != tokenID {
			t.Fatalf("edge token = %d, want %d", got.TokenID, tokenID)
		}
		byToken, err := tx.GetFollowEdgeByToken(ctx, tokenID)
		if err != nil {
			return err
		}
		if byToken.FollowerID != 1 || byToken.FolloweeID != 2 {
			t.Fatalf("edge by token = %d→%d, want 1→2", byToken.FollowerID, byToken.FolloweeID)
		}
		listed, err := tx.ListFollowEdgesByIdentity(ctx, 2)
		if err != nil {
			return err
		}
		if len(listed) != 1 {
			t.Fatalf("edges for followee = %d, want 1", len(listed))
		}
		if err := tx.DeleteFollowEdge(ctx, 1, 2); err != nil {
			return err
		}
		if _, err := tx.GetFollowEdge(ctx, 1, 2); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("edge after delete = %v, want ErrNotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("edge round trip: %v", err)
	}
}

func TestTokenMintBurn(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		first, err := tx.MintToken(ctx, "owner-1", storage.TokenKindLike)
		if err != nil {
			return err
		}
		second, err := tx.MintToken(ctx, "owner-1", storage.TokenKindLike)
		if err != nil {
			return err
		}
		if second <= first {
			t.Fatalf("token ids not monotonic: %d then %d", first, second)
		}
		owner, err := tx.TokenOwner(ctx, first)
		if err != nil {
			return err
		}
		if owner != "owner-1" {
			t.Fatalf("token owner = %q, want owner-1", owner)
		}
		if err := tx.BurnToken(ctx, first); err != nil {
			return err
		}
		exists, err := tx.TokenExists(ctx, first)
		if err != nil {
			return err
		}
		if exists {
			t.Fatal("burned token still exists")
		}
		if err := tx.BurnToken(ctx, first); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("double burn = %v, want ErrNotFound", err)
		}
		// Burned ids are never reissued.
		third, err := tx.MintToken(ctx, "owner-1", storage.TokenKindFollow)
		if err != nil {
			return err
		}
		if third <= second {
			t.Fatalf("token id reused: %d after %d", third, second)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("token lifecycle: %v", err)
	}
}

func TestAccountTransfer(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.Deposit(ctx, "payer", 100); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, "payer", "payee", 60); err != nil {
			return err
		}
		payer, err := tx.Balance(ctx, "payer")
		if err != nil {
			return err
		}
		payee, err := tx.Balance(ctx, "payee")
		if err != nil {
			return err
		}
		if payer != 40 || payee != 60 {
			t.Fatalf("balances = %d/%d, want 40/60", payer, payee)
		}
		if err := tx.Transfer(ctx, "payer", "payee", 41); !errors.Is(err, storage.ErrInsufficientFunds) {
			t.Fatalf("overdraw = %v, want ErrInsufficientFunds", err)
		}
		missing, err := tx.Balance(ctx, "stranger")
		if err != nil {
			return err
		}
		if missing != 0 {
			t.Fatalf("missing account balance = %d, want 0", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
}

func TestEventFeedOrdering(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		for i, id := range []string{"evt-a", "evt-b", "evt-c"} {
			appended, err := tx.AppendEvent(ctx, storage.Event{
				ID:        id,
				Type:      "identity.created",
				Payload:   []byte(`{}`),
				Timestamp: now.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				return err
			}
			if appended.Seq != int64(i+1) {
				t.Fatalf("seq = %d, want %d", appended.Seq, i+1)
			}
		}
		events, err := tx.ListEvents(ctx, 1, 10)
		if err != nil {
			return err
		}
		if len(events) != 2 {
			t.Fatalf("events after seq 1 = %d, want 2", len(events))
		}
		if events[0].ID != "evt-b" || events[1].ID != "evt-c" {
			t.Fatalf("event order = %s,%s, want evt-b,evt-c", events[0].ID, events[1].ID)
		}
		limited, err := tx.ListEvents(ctx, 0, 1)
		if err != nil {
			return err
		}
		if len(limited) != 1 || limited[0].ID != "evt-a" {
			t.Fatalf("limited feed = %+v, want single evt-a", limited)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("event feed: %v", err)
	}
}

func TestCommentListByTarget(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Tx) error {
		for i := 0; i < 2; i++ {
			if _, err := tx.InsertComment(ctx, storage.Comment{
				Owner:      "owner-1",
				CreatorID:  1,
				TargetID:   7,
				TargetKind: storage.TargetPublication,
				ContentURI: "ipfs://c",
				CreatedAt:  now.Add(time.Duration(i) * time.Minute),
				UpdatedAt:  now.Add(time.Duration(i) * time.Minute),
			}); err != nil {
				return err
			}
		}
		if _, err := tx.InsertComment(ctx, storage.Comment{
			Owner:      "owner-1",
			CreatorID:  1,
			TargetID:   7,
			TargetKind: storage.TargetComment,
			ContentURI: "ipfs://reply",
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
		onPublication, err := tx.ListCommentsByTarget(ctx, storage.TargetPublication, 7)
		if err != nil {
			return err
		}
		if len(onPublication) != 2 {
			t.Fatalf("comments on publication 7 = %d, want 2", len(onPublication))
		}
		onComment, err := tx.ListCommentsByTarget(ctx, storage.TargetComment, 7)
		if err != nil {
			return err
		}
		if len(onComment) != 1 {
			t.Fatalf("comments on comment 7 = %d, want 1", len(onComment))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("comment listing: %v", err)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.InsertIdentity(ctx, storage.Identity{
			Owner: "owner-1", Handle: "ghost", CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	err = store.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.GetIdentityByHandle(ctx, "ghost")
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rolled-back identity lookup = %v, want ErrNotFound", err)
	}
}
