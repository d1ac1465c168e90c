package app

import (
	"context"
	"testing"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/publication"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

const (
	aliceOwner = "owner-alice"
	bobOwner   = "owner-bob"
)

func openService(t *testing.T) *Service {
	t.Helper()
	svc, err := Open(Config{
		DBPath:          t.TempDir() + "/graph.db",
		LikeFee:         100,
		PlatformFeeRate: 10,
		TreasuryAccount: "treasury",
	})
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("close service: %v", err)
		}
	})
	return svc
}

func mustCreateIdentity(t *testing.T, svc *Service, owner, handle string) storage.Identity {
	t.Helper()
	result, err := svc.CreateIdentity(context.Background(), owner, handle, "")
	if err != nil {
		t.Fatalf("create identity %q: %v", handle, err)
	}
	return result.Identity
}

func musicFields(contentURI string) publication.Fields {
	return publication.Fields{
		ContentURI: contentURI,
		Title:      "First Light",
		Categories: storage.Categories{Primary: "Music"},
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice, err := svc.CreateIdentity(ctx, aliceOwner, "Alice", "ipfs://img/alice")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if alice.Identity.Handle != "alice" {
		t.Fatalf("alice handle = %q, want canonical alice", alice.Identity.Handle)
	}
	if !alice.BecameDefault {
		t.Fatal("first identity of owner did not become default")
	}
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")

	followed, err := svc.Follow(ctx, aliceOwner, alice.Identity.ID, bob.ID)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if !followed.Following {
		t.Fatal("toggle did not create the edge")
	}
	if followed.Followee.FollowerCount != 1 || followed.Follower.FollowingCount != 1 {
		t.Fatalf("counts = followee %d / follower %d, want 1/1",
			followed.Followee.FollowerCount, followed.Follower.FollowingCount)
	}

	if err := svc.Deposit(ctx, aliceOwner, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
	if pub.LikeCount != 0 || pub.DislikeCount != 0 {
		t.Fatalf("fresh publication counts = %d/%d, want 0/0", pub.LikeCount, pub.DislikeCount)
	}

	liked, err := svc.Like(ctx, aliceOwner, alice.Identity.ID, pub.ID, 100)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if liked.Publication.LikeCount != 1 {
		t.Fatalf("like count = %d, want 1", liked.Publication.LikeCount)
	}
	if liked.NetFee+liked.PlatformFee != 100 {
		t.Fatalf("fee split %d+%d != payment 100", liked.NetFee, liked.PlatformFee)
	}

	bobBalance, err := svc.Balance(ctx, bobOwner)
	if err != nil {
		t.Fatalf("bob balance: %v", err)
	}
	treasury, err := svc.Balance(ctx, "treasury")
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	aliceBalance, err := svc.Balance(ctx, aliceOwner)
	if err != nil {
		t.Fatalf("alice balance: %v", err)
	}
	if bobBalance != 90 || treasury != 10 || aliceBalance != 900 {
		t.Fatalf("balances bob/treasury/alice = %d/%d/%d, want 90/10/900",
			bobBalance, treasury, aliceBalance)
	}

	after, err := svc.Unlike(ctx, aliceOwner, alice.Identity.ID, pub.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if after.LikeCount != 0 {
		t.Fatalf("like count after unlike = %d, want 0", after.LikeCount)
	}
	// No refund on unlike.
	aliceBalance, err = svc.Balance(ctx, aliceOwner)
	if err != nil {
		t.Fatalf("alice balance after unlike: %v", err)
	}
	if aliceBalance != 900 {
		t.Fatalf("alice balance after unlike = %d, want 900", aliceBalance)
	}

	if err := svc.BurnIdentity(ctx, aliceOwner, alice.Identity.ID); !apperrors.Is(err, apperrors.CodeBurnDefaultForbidden) {
		t.Fatalf("burn default = %v, want BURN_DEFAULT_FORBIDDEN", err)
	}

	events, err := svc.Events(ctx, 0, 100)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("event feed length = %d, want 6", len(events))
	}
	for i, evt := range events {
		if evt.Seq != int64(i+1) {
			t.Fatalf("event %d seq = %d, want %d", i, evt.Seq, i+1)
		}
	}
}

func TestHandleTakenAcrossOwners(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	mustCreateIdentity(t, svc, aliceOwner, "shared")
	if _, err := svc.CreateIdentity(ctx, bobOwner, "SHARED", ""); !apperrors.Is(err, apperrors.CodeHandleTaken) {
		t.Fatalf("duplicate handle = %v, want HANDLE_TAKEN", err)
	}
	if _, err := svc.CreateIdentity(ctx, bobOwner, "no spaces here", ""); !apperrors.Is(err, apperrors.CodeHandleInvalid) {
		t.Fatalf("invalid handle = %v, want HANDLE_INVALID", err)
	}
}

func TestDefaultIdentityLifecycle(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	first := mustCreateIdentity(t, svc, aliceOwner, "first")
	secondResult, err := svc.CreateIdentity(ctx, aliceOwner, "second", "")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if secondResult.BecameDefault {
		t.Fatal("second identity of owner became default")
	}
	second := secondResult.Identity

	if _, err := svc.SetDefaultIdentity(ctx, aliceOwner, first.ID); !apperrors.Is(err, apperrors.CodeAlreadyDefault) {
		t.Fatalf("re-defaulting default = %v, want IDENTITY_ALREADY_DEFAULT", err)
	}

	promoted, err := svc.SetDefaultIdentity(ctx, aliceOwner, second.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !promoted.Default {
		t.Fatal("promoted identity is not default")
	}
	demoted, err := svc.GetIdentity(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if demoted.Default {
		t.Fatal("previous default was not cleared")
	}

	// Burning the former default is now allowed.
	if err := svc.BurnIdentity(ctx, aliceOwner, first.ID); err != nil {
		t.Fatalf("burn former default: %v", err)
	}
	if _, err := svc.GetIdentity(ctx, first.ID); err == nil {
		t.Fatal("burned identity still readable")
	}
}

func TestFollowToggleLaw(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice := mustCreateIdentity(t, svc, aliceOwner, "alice")
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")

	if _, err := svc.Follow(ctx, aliceOwner, alice.ID, alice.ID); !apperrors.Is(err, apperrors.CodeSelfFollowForbidden) {
		t.Fatalf("self follow = %v, want FOLLOW_SELF_FORBIDDEN", err)
	}
	if _, err := svc.Follow(ctx, bobOwner, alice.ID, bob.ID); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("foreign follower = %v, want FORBIDDEN", err)
	}

	first, err := svc.Follow(ctx, aliceOwner, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("is following: %v", err)
	}
	if !first.Following || !following {
		t.Fatal("edge missing after first toggle")
	}

	second, err := svc.Follow(ctx, aliceOwner, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Following {
		t.Fatal("edge still present after second toggle")
	}
	if second.Follower.FollowingCount != 0 || second.Followee.FollowerCount != 0 {
		t.Fatalf("counts after round trip = %d/%d, want 0/0",
			second.Follower.FollowingCount, second.Followee.FollowerCount)
	}
	following, err = svc.IsFollowing(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("is following after round trip: %v", err)
	}
	if following {
		t.Fatal("IsFollowing true after round trip")
	}
}

func TestPublicationValidationAndUpdate(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	bob := mustCreateIdentity(t, svc, bobOwner, "bob")

	if _, err := svc.CreatePublication(ctx, bobOwner, bob.ID, publication.Fields{
		ContentURI: "ipfs://x",
	}); !apperrors.Is(err, apperrors.CodeCategoryInvalid) {
		t.Fatalf("missing primary category = %v, want PUBLICATION_CATEGORY_INVALID", err)
	}
	if _, err := svc.CreatePublication(ctx, bobOwner, bob.ID, publication.Fields{
		ContentURI: "ipfs://x",
		Categories: storage.Categories{Primary: "Music", Tertiary: "Ambient"},
	}); !apperrors.Is(err, apperrors.CodeCategoryInvalid) {
		t.Fatalf("tertiary without secondary = %v, want PUBLICATION_CATEGORY_INVALID", err)
	}
	if _, err := svc.CreatePublication(ctx, bobOwner, bob.ID, publication.Fields{
		Categories: storage.Categories{Primary: "Music"},
	}); !apperrors.Is(err, apperrors.CodeFieldInvalid) {
		t.Fatalf("missing content uri = %v, want FIELD_INVALID", err)
	}

	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}

	sameFields := musicFields("ipfs://track-01")
	if _, err := svc.UpdatePublication(ctx, bobOwner, pub.ID, sameFields); !apperrors.Is(err, apperrors.CodeNothingChanged) {
		t.Fatalf("no-op update = %v, want NOTHING_CHANGED", err)
	}

	changed := musicFields("ipfs://track-01")
	changed.Categories.Secondary = "Electronic"
	updated, err := svc.UpdatePublication(ctx, bobOwner, pub.ID, changed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Categories.Secondary != "Electronic" {
		t.Fatalf("secondary = %q, want Electronic", updated.Categories.Secondary)
	}

	if _, err := svc.UpdatePublication(ctx, aliceOwner, pub.ID, musicFields("ipfs://other")); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("foreign update = %v, want FORBIDDEN", err)
	}

	listed, err := svc.ListPublicationsByCreator(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("publications by creator = %d, want 1", len(listed))
	}
}

func TestEngagementStateMachine(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice := mustCreateIdentity(t, svc, aliceOwner, "alice")
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")
	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
	if err := svc.Deposit(ctx, aliceOwner, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := svc.Like(ctx, aliceOwner, alice.ID, pub.ID, 99); !apperrors.Is(err, apperrors.CodeBadPayment) {
		t.Fatalf("short payment = %v, want BAD_PAYMENT", err)
	}
	if _, err := svc.Like(ctx, aliceOwner, alice.ID, pub.ID, 100); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.Like(ctx, aliceOwner, alice.ID, pub.ID, 100); !apperrors.Is(err, apperrors.CodeAlreadyLiked) {
		t.Fatalf("double like = %v, want ALREADY_LIKED", err)
	}

	// Dislike displaces the standing like.
	after, err := svc.Dislike(ctx, aliceOwner, alice.ID, pub.ID)
	if err != nil {
		t.Fatalf("dislike: %v", err)
	}
	if after.LikeCount != 0 || after.DislikeCount != 1 {
		t.Fatalf("counts after dislike = %d/%d, want 0/1", after.LikeCount, after.DislikeCount)
	}
	state, err := svc.EngagementState(ctx, alice.ID, pub.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Liked || !state.Disliked {
		t.Fatalf("state = %+v, want disliked only", state)
	}

	if _, err := svc.Dislike(ctx, aliceOwner, alice.ID, pub.ID); !apperrors.Is(err, apperrors.CodeAlreadyDisliked) {
		t.Fatalf("double dislike = %v, want ALREADY_DISLIKED", err)
	}

	// A new like clears the dislike.
	liked, err := svc.Like(ctx, aliceOwner, alice.ID, pub.ID, 100)
	if err != nil {
		t.Fatalf("re-like: %v", err)
	}
	if liked.Publication.LikeCount != 1 || liked.Publication.DislikeCount != 0 {
		t.Fatalf("counts after re-like = %d/%d, want 1/0",
			liked.Publication.LikeCount, liked.Publication.DislikeCount)
	}

	if _, err := svc.UndoDislike(ctx, aliceOwner, alice.ID, pub.ID); !apperrors.Is(err, apperrors.CodeNothingChanged) {
		t.Fatalf("undo absent dislike = %v, want NOTHING_CHANGED", err)
	}
	if _, err := svc.Unlike(ctx, aliceOwner, alice.ID, pub.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if _, err := svc.Unlike(ctx, aliceOwner, alice.ID, pub.ID); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("unlike without record = %v, want NOT_FOUND", err)
	}

	final, err := svc.GetPublication(ctx, pub.ID)
	if err != nil {
		t.Fatalf("get publication: %v", err)
	}
	if final.LikeCount != 0 || final.DislikeCount != 0 {
		t.Fatalf("final counts = %d/%d, want 0/0", final.LikeCount, final.DislikeCount)
	}
}

func TestLikeFailsAtomicallyWithoutFunds(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice := mustCreateIdentity(t, svc, aliceOwner, "alice")
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")
	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}

	if _, err := svc.Like(ctx, aliceOwner, alice.ID, pub.ID, 100); !apperrors.Is(err, apperrors.CodePaymentFailed) {
		t.Fatalf("unfunded like = %v, want ENGAGEMENT_PAYMENT_FAILED", err)
	}

	// The failed transfer rolled every effect back.
	after, err := svc.GetPublication(ctx, pub.ID)
	if err != nil {
		t.Fatalf("get publication: %v", err)
	}
	if after.LikeCount != 0 {
		t.Fatalf("like count after failed like = %d, want 0", after.LikeCount)
	}
	state, err := svc.EngagementState(ctx, alice.ID, pub.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Liked {
		t.Fatal("like record survived a failed payment")
	}
}

func TestBurnIdentityCascade(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	keeper := mustCreateIdentity(t, svc, aliceOwner, "keeper")
	burner, err := svc.CreateIdentity(ctx, aliceOwner, "burner", "")
	if err != nil {
		t.Fatalf("create burner: %v", err)
	}
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")

	if _, err := svc.Follow(ctx, aliceOwner, burner.Identity.ID, bob.ID); err != nil {
		t.Fatalf("burner follows bob: %v", err)
	}
	if _, err := svc.Follow(ctx, bobOwner, bob.ID, burner.Identity.ID); err != nil {
		t.Fatalf("bob follows burner: %v", err)
	}
	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
	if err := svc.Deposit(ctx, aliceOwner, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Like(ctx, aliceOwner, burner.Identity.ID, pub.ID, 100); err != nil {
		t.Fatalf("burner likes: %v", err)
	}

	if err := svc.BurnIdentity(ctx, bobOwner, burner.Identity.ID); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("foreign burn = %v, want FORBIDDEN", err)
	}
	if err := svc.BurnIdentity(ctx, aliceOwner, burner.Identity.ID); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if _, err := svc.GetIdentity(ctx, burner.Identity.ID); err == nil {
		t.Fatal("burned identity still readable")
	}
	bobAfter, err := svc.GetIdentity(ctx, bob.ID)
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if bobAfter.FollowerCount != 0 || bobAfter.FollowingCount != 0 {
		t.Fatalf("bob counts after cascade = %d/%d, want 0/0",
			bobAfter.FollowerCount, bobAfter.FollowingCount)
	}
	pubAfter, err := svc.GetPublication(ctx, pub.ID)
	if err != nil {
		t.Fatalf("get publication: %v", err)
	}
	if pubAfter.LikeCount != 0 {
		t.Fatalf("like count after cascade = %d, want 0", pubAfter.LikeCount)
	}
	if _, err := svc.GetIdentity(ctx, keeper.ID); err != nil {
		t.Fatalf("sibling identity lost in cascade: %v", err)
	}
}

func TestCommentLifecycle(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice := mustCreateIdentity(t, svc, aliceOwner, "alice")
	bob := mustCreateIdentity(t, svc, bobOwner, "bob")
	pub, err := svc.CreatePublication(ctx, bobOwner, bob.ID, musicFields("ipfs://track-01"))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}

	if _, err := svc.CreateComment(ctx, aliceOwner, alice.ID, pub.ID, "sticker", "ipfs://c1"); !apperrors.Is(err, apperrors.CodeCommentTargetInvalid) {
		t.Fatalf("bad target kind = %v, want COMMENT_TARGET_INVALID", err)
	}

	first, err := svc.CreateComment(ctx, aliceOwner, alice.ID, pub.ID, storage.TargetPublication, "ipfs://c1")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	reply, err := svc.CreateComment(ctx, bobOwner, bob.ID, first.ID, storage.TargetComment, "ipfs://c2")
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}

	if _, err := svc.UpdateComment(ctx, aliceOwner, first.ID, "ipfs://c1"); !apperrors.Is(err, apperrors.CodeNothingChanged) {
		t.Fatalf("no-op comment update = %v, want NOTHING_CHANGED", err)
	}
	if _, err := svc.UpdateComment(ctx, bobOwner, first.ID, "ipfs://c1-v2"); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("foreign comment update = %v, want FORBIDDEN", err)
	}
	updated, err := svc.UpdateComment(ctx, aliceOwner, first.ID, "ipfs://c1-v2")
	if err != nil {
		t.Fatalf("update comment: %v", err)
	}
	if updated.ContentURI != "ipfs://c1-v2" {
		t.Fatalf("content uri = %q, want ipfs://c1-v2", updated.ContentURI)
	}

	onPublication, err := svc.ListCommentsByTarget(ctx, storage.TargetPublication, pub.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(onPublication) != 1 {
		t.Fatalf("comments on publication = %d, want 1", len(onPublication))
	}

	if err := svc.DeleteComment(ctx, aliceOwner, first.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	// Replies are not cascaded; the reply keeps its dangling target.
	kept, err := svc.GetComment(ctx, reply.ID)
	if err != nil {
		t.Fatalf("get reply: %v", err)
	}
	if kept.TargetID != first.ID {
		t.Fatalf("reply target = %d, want %d", kept.TargetID, first.ID)
	}
}

func TestLookupHandle(t *testing.T) {
	svc := openService(t)
	ctx := context.Background()

	alice := mustCreateIdentity(t, svc, aliceOwner, "alice")
	got, err := svc.LookupHandle(ctx, "  ALICE ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != alice.ID {
		t.Fatalf("lookup id = %d, want %d", got.ID, alice.ID)
	}
	if _, err := svc.LookupHandle(ctx, "nobody"); err == nil {
		t.Fatal("lookup of unknown handle succeeded")
	}
}
