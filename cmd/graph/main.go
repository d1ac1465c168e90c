// Package main inspects a local content graph store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	graphcmd "github.com/lumenfeed/lumenfeed/internal/cmd/graph"
)

func main() {
	cfg, err := graphcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GRAPH] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := graphcmd.Run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("graph failed: %v", err)
	}
}
