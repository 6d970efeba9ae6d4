// Command cockroachd is the authoritative Cockroach Poker game server: an
// HTTP control plane for room lifecycle plus a WebSocket hub for real-time
// play.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"

	"cockroach-poker/pkg/auth"
	"cockroach-poker/pkg/broker"
	"cockroach-poker/pkg/config"
	"cockroach-poker/pkg/httpapi"
	"cockroach-poker/pkg/record"
	"cockroach-poker/pkg/session"
	"cockroach-poker/pkg/ws"
)

const version = "0.3.0"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println("cockroachd", version)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("SRV")
	if level, ok := slog.LevelFromString(cfg.DebugLevel); ok {
		log.SetLevel(level)
	}

	// Record sink: Postgres when configured, local SQLite otherwise.
	var sink record.Sink
	if cfg.DatabaseURL != "" {
		sink, err = record.NewPostgresSink(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to persistence: %v\n", err)
			os.Exit(1)
		}
		log.Infof("Record sink: postgres")
	} else {
		sink, err = record.NewSQLiteSink(cfg.SQLitePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open sqlite sink: %v\n", err)
			os.Exit(1)
		}
		log.Infof("Record sink: sqlite at %s", cfg.SQLitePath)
	}
	defer sink.Close()

	// Broker bridge for cross-instance event mirroring.
	var pub broker.Publisher = broker.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := broker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, backend.Logger("BRKR"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to kafka: %v\n", err)
			os.Exit(1)
		}
		pub = kp
		log.Infof("Broker bridge: kafka topic %s", cfg.KafkaTopic)
	}
	defer pub.Close()

	verifier := auth.NewVerifier([]byte(cfg.JWTSecret), cfg.RefreshSalt, nil)
	profiles := auth.NewProfileClient(cfg.IdentityURL, cfg.IdentityServiceKey)

	registry := session.NewRegistry(backend.Logger("ROOM"), sink, pub, nil)
	hub := ws.NewHub(backend.Logger("HUB"), verifier, profiles, registry)
	registry.SetBroadcaster(hub)

	api := httpapi.NewServer(backend.Logger("HTTP"), verifier, registry, hub)
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("Listening on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Infof("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	registry.Shutdown()
}
