// Package graph parses graph command flags and serves the local inspection CLI.
package graph

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/lumenfeed/lumenfeed/internal/platform/cmd"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/app"
)

// Config holds graph command configuration.
type Config struct {
	Graph    app.Config
	AfterSeq int64
	Limit    int
	Handle   string
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	graphCfg, err := app.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Graph: graphCfg}
	fs.StringVar(&cfg.Graph.DBPath, "db", cfg.Graph.DBPath, "graph database path")
	fs.Int64Var(&cfg.AfterSeq, "after", 0, "print feed entries after this sequence number")
	fs.IntVar(&cfg.Limit, "limit", 50, "maximum feed entries to print")
	fs.StringVar(&cfg.Handle, "handle", "", "resolve a handle instead of printing the feed")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run prints the durable event feed, or resolves a handle when -handle is set.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGraph, func(ctx context.Context) error {
		svc, err := app.Open(cfg.Graph)
		if err != nil {
			return err
		}
		defer svc.Close()

		if cfg.Handle != "" {
			identity, err := svc.LookupHandle(ctx, cfg.Handle)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d\t@%s\towner=%s\tfollowers=%d\tfollowing=%d\tdefault=%t\n",
				identity.ID, identity.Handle, identity.Owner,
				identity.FollowerCount, identity.FollowingCount, identity.Default)
			return nil
		}

		events, err := svc.Events(ctx, cfg.AfterSeq, cfg.Limit)
		if err != nil {
			return err
		}
		for _, evt := range events {
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", evt.Seq, evt.Timestamp.Format("2006-01-02T15:04:05Z07:00"), evt.Type, evt.Payload)
		}
		return nil
	})
}
