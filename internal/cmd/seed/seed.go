// Package seed parses seed command flags and provisions a demo graph.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/lumenfeed/lumenfeed/internal/platform/cmd"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/app"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/publication"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Config holds seed command configuration.
type Config struct {
	Graph   app.Config
	Verbose bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	graphCfg, err := app.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Graph: graphCfg}
	fs.StringVar(&cfg.Graph.DBPath, "db", cfg.Graph.DBPath, "graph database path")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run provisions the demo graph: two identities, a follow edge, a funded
// account, one publication, one paid like, one unlike.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		svc, err := app.Open(cfg.Graph)
		if err != nil {
			return err
		}
		defer svc.Close()
		return run(ctx, svc, cfg, out)
	})
}

const (
	aliceOwner = "owner-alice"
	bobOwner   = "owner-bob"
)

func run(ctx context.Context, svc *app.Service, cfg Config, out io.Writer) error {
	alice, err := svc.CreateIdentity(ctx, aliceOwner, "alice", "ipfs://demo/alice.png")
	if err != nil {
		return fmt.Errorf("create alice: %w", err)
	}
	bob, err := svc.CreateIdentity(ctx, bobOwner, "bob", "ipfs://demo/bob.png")
	if err != nil {
		return fmt.Errorf("create bob: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "identities: alice=%d (default=%t) bob=%d\n",
			alice.Identity.ID, alice.BecameDefault, bob.Identity.ID)
	}

	followed, err := svc.Follow(ctx, aliceOwner, alice.Identity.ID, bob.Identity.ID)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "follow: alice→bob token=%d followers(bob)=%d\n",
			followed.TokenID, followed.Followee.FollowerCount)
	}

	if err := svc.Deposit(ctx, aliceOwner, cfg.Graph.LikeFee*10); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	pub, err := svc.CreatePublication(ctx, bobOwner, bob.Identity.ID, publication.Fields{
		ContentURI: "ipfs://demo/track-01",
		Title:      "First Light",
		Categories: storage.Categories{Primary: "Music"},
	})
	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}

	liked, err := svc.Like(ctx, aliceOwner, alice.Identity.ID, pub.ID, cfg.Graph.LikeFee)
	if err != nil {
		return fmt.Errorf("like: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "like: token=%d creator=%d treasury=%d\n",
			liked.TokenID, liked.NetFee, liked.PlatformFee)
	}

	if _, err := svc.Unlike(ctx, aliceOwner, alice.Identity.ID, pub.ID); err != nil {
		return fmt.Errorf("unlike: %w", err)
	}

	fmt.Fprintf(out, "seeded graph at %s\n", cfg.Graph.DBPath)
	return nil
}
