package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EsploraEndpointKey is the endpoint where the esplora REST API is listening
	EsploraEndpointKey = "ESPLORA_ENDPOINT"
	// DatadirKey is the local data directory to store the internal state of the wallet
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NetworkKey is the network to use. Either "mainnet", "testnet" or "regtest"
	NetworkKey = "NETWORK"
	// SyncIntervalKey is the interval in milliseconds between two synchronization passes
	SyncIntervalKey = "SYNC_INTERVAL"
	// DisableTxHistoryKey skips synchronizing the transaction history of accounts, balances only
	DisableTxHistoryKey = "DISABLE_TX_HISTORY"

	// DbLocation is the folder inside the datadir containing the accounts db
	DbLocation = "db"
	// SecureStoreLocation is the folder inside the datadir containing the key material store
	SecureStoreLocation = "keys"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("walletd", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETD")
	vip.AutomaticEnv()

	vip.SetDefault(EsploraEndpointKey, "https://blockstream.info/api")
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NetworkKey, "mainnet")
	vip.SetDefault(SyncIntervalKey, 30000)
	vip.SetDefault(DisableTxHistoryKey, false)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

//GetDuration returns the value of the key in milliseconds
func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Millisecond
}

//GetNetwork ...
func GetNetwork() *chaincfg.Params {
	switch vip.GetString(NetworkKey) {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

//GetDatadir ...
func GetDatadir() string {
	return GetString(DatadirKey)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	networkName := GetString(NetworkKey)
	if networkName != "mainnet" && networkName != "testnet" &&
		networkName != "regtest" {
		return fmt.Errorf(
			"network must be one of 'mainnet', 'testnet' or 'regtest'",
		)
	}

	esploraEndpoint := GetString(EsploraEndpointKey)
	if _, err := url.Parse(esploraEndpoint); err != nil {
		return fmt.Errorf("esplora endpoint is not a valid url: %s", err)
	}

	if GetInt(SyncIntervalKey) <= 0 {
		return fmt.Errorf("sync interval must be a positive number of milliseconds")
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, SecureStoreLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
