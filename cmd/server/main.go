package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"solrails/internal/balance"
	"solrails/internal/config"
	"solrails/internal/idempotency"
	"solrails/internal/ledger"
	"solrails/internal/server"
	"solrails/internal/signer"
	"solrails/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store idempotency.Store
	if cfg.Service.PostgresDSN != "" {
		pgStore, err := idempotency.NewPostgresStore(ctx, cfg.Service.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres store error: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		fileStore, err := idempotency.NewFileStore(cfg.Service.IdempotencyStorePath)
		if err != nil {
			log.Fatalf("idempotency store error: %v", err)
		}
		store = fileStore
	}

	led, err := ledger.NewRPCClient(ledger.RPCClientConfig{
		Endpoint:     cfg.Cluster.RPCURL,
		Commitment:   rpc.CommitmentType(cfg.Cluster.Commitment),
		PollInterval: cfg.Cluster.ConfirmPollInterval,
	})
	if err != nil {
		log.Fatalf("ledger client error: %v", err)
	}

	var sg signer.Signer
	var poller *balance.Poller
	if cfg.Wallet.PrivateKey != "" {
		keypair, err := signer.KeypairSignerFromBase58(cfg.Wallet.PrivateKey)
		if err != nil {
			log.Fatalf("wallet key error: %v", err)
		}
		sg = keypair
		poller = balance.NewPoller(led, keypair.PublicKey(), cfg.Cluster.BalancePollInterval)
		go poller.Run(ctx)
		log.Printf("wallet %s on %s", keypair.PublicKey(), cfg.Cluster.RPCURL)
	} else {
		log.Printf("no WALLET_PRIVATE_KEY set; wallet actions will be rejected")
	}

	svc := wallet.NewService(led, sg, poller)
	apiServer := server.NewServer(cfg, svc, led, store)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
}
