package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/walletkit/walletd/config"
	"github.com/walletkit/walletd/internal/core/application"
	"github.com/walletkit/walletd/internal/infrastructure/chain/esplora"
	dbbadger "github.com/walletkit/walletd/internal/infrastructure/storage/db/badger"
	boltsecurestore "github.com/walletkit/walletd/pkg/securestore/bolt"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()

	secureStore, err := boltsecurestore.NewSecureStorage(
		filepath.Join(datadir, config.SecureStoreLocation), "wallet.db",
	)
	if err != nil {
		log.WithError(err).Panic("error while opening secure store")
	}
	defer secureStore.Close()

	dbManager, err := dbbadger.NewDbManager(
		filepath.Join(datadir, config.DbLocation), nil,
	)
	if err != nil {
		log.WithError(err).Panic("error while opening accounts db")
	}
	defer dbManager.Close()

	chainSvc, err := esplora.NewService(config.GetString(config.EsploraEndpointKey))
	if err != nil {
		log.WithError(err).Panic("error while connecting to esplora")
	}

	walletSvc, err := application.NewWalletService(application.WalletServiceOpts{
		Network:      config.GetNetwork(),
		SecureStore:  secureStore,
		Repository:   dbbadger.NewAccountRepositoryImpl(dbManager),
		ChainService: chainSvc,
	})
	if err != nil {
		log.WithError(err).Panic("error while loading wallet")
	}
	defer walletSvc.Close()

	if config.GetBool(config.DisableTxHistoryKey) {
		walletSvc.DisableTransactionHistorySynchronization()
	}

	log.Info(walletSvc.String())
	log.Debug("starting daemon")

	syncInterval := config.GetDuration(config.SyncIntervalKey)
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		walletSvc.Synchronize()
		for {
			select {
			case <-ticker.C:
				walletSvc.Synchronize()
			case <-done:
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	close(done)

	log.Debug("exiting")
}
