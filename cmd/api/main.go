package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punchamoorthee/lockvault/internal/api"
	"github.com/punchamoorthee/lockvault/internal/chain"
	"github.com/punchamoorthee/lockvault/internal/config"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/events"
	"github.com/punchamoorthee/lockvault/internal/events/kafka"
	"github.com/punchamoorthee/lockvault/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerStore, err := store.Open(ctx, store.Options{
		Backend:    cfg.Backend,
		DBSource:   cfg.DBSource,
		SQLitePath: cfg.SQLitePath,
		Owner:      domain.AccountID(cfg.Owner),
	})
	if err != nil {
		log.Fatalf("Unable to open %s store: %v", cfg.Backend, err)
	}
	defer ledgerStore.Close()

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		pub = kp
		log.Printf("[api] publishing finalized transactions to %s on %v", cfg.KafkaTopic, cfg.KafkaBrokers)
	}

	// Initialize Layers
	node := chain.NewNode(chain.Config{
		MempoolSize: cfg.MempoolSize,
		BlockDelay:  cfg.BlockDelay.Duration,
		MaxReceipts: cfg.MaxReceipts,
		Topic:       cfg.KafkaTopic,
	}, ledgerStore, domain.SystemClock{}, pub)
	handler := api.NewHandler(node)

	nodeDone := make(chan struct{})
	go func() {
		defer close(nodeDone)
		node.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[api] shutdown: %v", err)
		}
	}()

	log.Printf("Server starting on :%s (backend=%s, owner=%s, env=%s)", cfg.Port, cfg.Backend, cfg.Owner, cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-nodeDone
}
