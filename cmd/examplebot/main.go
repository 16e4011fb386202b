// Command examplebot is a minimal usage example for the sandwich
// module: it opens a sharded gateway session, logs every dispatched
// event, and exits cleanly on SIGINT/SIGTERM. Grounded on the
// teacher's root main.go (flag-based token/shard configuration,
// zerolog console writer, signal-driven shutdown), trimmed of the
// teacher's multi-cluster and pprof flourishes since this is a usage
// example rather than the production deployment binary.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	sandwich "github.com/TheRockettek/sandwich-gateway"
	"github.com/rs/zerolog"
)

func main() {
	token := flag.String("token", "", "token the bot will use to authenticate")
	shardCount := flag.Int("shards", 0, "shard count to use, or 0 to autoshard")
	flag.Parse()

	if *token == "" {
		if env := os.Getenv("SANDWICH_TOKEN"); env != "" {
			*token = env
		}
	}

	log := sandwich.NewConsoleLogger(zerolog.InfoLevel)

	if *token == "" {
		log.Fatal().Msg("no token supplied, pass -token or set SANDWICH_TOKEN")
	}

	manager := sandwich.NewManager(*token, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := manager.Open(ctx, *shardCount, func(sess *sandwich.Session) {
		shardID := sess.ShardID
		sess.Dispatcher.OnUnhandled(func(ev sandwich.Event) {
			log.Info().Int("shard", shardID).Str("event", ev.Type).Msg("dispatched event")
		})
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not open manager")
	}

	log.Info().Msg("sessions have started, press ^C to close")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	manager.Close()
}
