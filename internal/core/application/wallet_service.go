package application

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/walletkit/walletd/internal/core/domain"
	"github.com/walletkit/walletd/internal/core/ports"
	"github.com/walletkit/walletd/pkg/hdkeys"
	"github.com/walletkit/walletd/pkg/keycipher"
	"github.com/walletkit/walletd/pkg/record"
	"github.com/walletkit/walletd/pkg/securestore"
)

// masterSeedID is the reserved, well-known secure-store identifier of the
// master seed blob. It must never change: every other identifier in the
// store is account or address scoped.
var masterSeedID, _ = hex.DecodeString("d64ca2b680d8c8909a367f28eb47f990")

// ErrUnknownInputFormat ...
var ErrUnknownInputFormat = errors.New(
	"input is not a recognized address or private key format",
)

const notificationQueueSize = 100

// Observer gets callbacks when the wallet changes state or when account
// events occur. Delivery follows registration order and is decoupled from
// the engine's internal locks through a bounded queue.
type Observer interface {
	OnWalletStateChanged(wallet *WalletService, state domain.WalletState)
	OnAccountEvent(wallet *WalletService, accountID domain.AccountID, event domain.AccountEvent)
}

type notification struct {
	isStateChange bool
	state         domain.WalletState
	accountID     domain.AccountID
	event         domain.AccountEvent
}

// WalletService manages a wallet that contains multiple HD accounts and
// 'classic' single address accounts. It owns the live account map, drives
// background synchronization and fans events out to registered observers.
type WalletService struct {
	network     *chaincfg.Params
	secureStore securestore.SecureStorage
	repo        domain.AccountContextRepository
	chainSvc    ports.ChainService

	accountsMtx  sync.Mutex
	accounts     map[domain.AccountID]domain.Account
	accountOrder []domain.AccountID
	hdAccounts   []*domain.HDAccount

	observersMtx sync.Mutex
	observers    []Observer

	stateMtx sync.RWMutex
	state    domain.WalletState

	// syncing guards the at-most-one-worker invariant.
	syncing     int32
	syncHistory int32

	notifications chan notification
	dispatcherWg  sync.WaitGroup
	workerWg      sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// WalletServiceOpts is the struct given to the NewWalletService method
type WalletServiceOpts struct {
	Network      *chaincfg.Params
	SecureStore  securestore.SecureStorage
	Repository   domain.AccountContextRepository
	ChainService ports.ChainService
}

func (o WalletServiceOpts) validate() error {
	if o.Network == nil {
		return fmt.Errorf("network params must not be null")
	}
	if o.SecureStore == nil {
		return fmt.Errorf("secure store must not be null")
	}
	if o.Repository == nil {
		return fmt.Errorf("account context repository must not be null")
	}
	if o.ChainService == nil {
		return fmt.Errorf("chain service must not be null")
	}
	return nil
}

// NewWalletService loads all persisted accounts and returns a ready wallet.
// HD accounts are loaded only if a master seed has been configured;
// single-address accounts always load.
func NewWalletService(opts WalletServiceOpts) (*WalletService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WalletService{
		network:       opts.Network,
		secureStore:   opts.SecureStore,
		repo:          opts.Repository,
		chainSvc:      opts.ChainService,
		accounts:      map[domain.AccountID]domain.Account{},
		state:         domain.StateReady,
		syncHistory:   1,
		notifications: make(chan notification, notificationQueueSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	w.dispatcherWg.Add(1)
	go w.dispatchNotifications()

	if err := w.loadAccounts(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Close shuts the wallet down: it cancels any in-flight synchronization
// pass and drains the notification queue. The wallet must not be used
// afterwards.
func (w *WalletService) Close() {
	w.cancel()
	w.workerWg.Wait()
	close(w.notifications)
	w.dispatcherWg.Wait()
}

// State returns the current synchronization state.
func (w *WalletService) State() domain.WalletState {
	w.stateMtx.RLock()
	defer w.stateMtx.RUnlock()
	return w.state
}

// AddObserver registers an observer for state changes and account events.
func (w *WalletService) AddObserver(observer Observer) {
	w.observersMtx.Lock()
	defer w.observersMtx.Unlock()
	w.observers = append(w.observers, observer)
}

// RemoveObserver unregisters a previously added observer.
func (w *WalletService) RemoveObserver(observer Observer) {
	w.observersMtx.Lock()
	defer w.observersMtx.Unlock()
	for i, o := range w.observers {
		if o == observer {
			w.observers = append(w.observers[:i], w.observers[i+1:]...)
			return
		}
	}
}

// DisableTransactionHistorySynchronization makes synchronization skip the
// transaction history of accounts. This is useful for cold storage spending
// where the history is uninteresting and fetching it would slow down the
// pass; balances are always synchronized.
func (w *WalletService) DisableTransactionHistorySynchronization() {
	atomic.StoreInt32(&w.syncHistory, 0)
}

// HasMasterSeed returns whether a master seed has been configured.
func (w *WalletService) HasMasterSeed() bool {
	return w.secureStore.Has(masterSeedID)
}

// ConfigureMasterSeed stores the master seed encrypted under the given
// cipher. A wallet's seed is configured once and can never be replaced.
func (w *WalletService) ConfigureMasterSeed(
	seed hdkeys.MasterSeed, cipher keycipher.Cipher,
) error {
	if w.HasMasterSeed() {
		return domain.ErrMasterSeedAlreadyConfigured
	}
	if len(seed) <= 0 {
		return hdkeys.ErrNullMasterSeed
	}
	return w.secureStore.Put(masterSeedID, seed, cipher)
}

// MasterSeed returns the master seed in plain text.
func (w *WalletService) MasterSeed(cipher keycipher.Cipher) (hdkeys.MasterSeed, error) {
	if !w.HasMasterSeed() {
		return nil, domain.ErrNoMasterSeed
	}
	raw, err := w.secureStore.Get(masterSeedID, cipher)
	if err != nil {
		return nil, err
	}
	if len(raw) <= 0 {
		return nil, domain.ErrMalformedMasterSeed
	}
	return hdkeys.MasterSeed(raw), nil
}

// CreateSingleAddressAccount creates a new watch-only account for the given
// address. The account id is derived from the address, so the operation is
// idempotent: if the account already exists its id is returned without side
// effects.
func (w *WalletService) CreateSingleAddressAccount(
	addr btcutil.Address,
) (domain.AccountID, error) {
	id := domain.NewSingleAddressAccountID(addr, w.network)

	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	if _, ok := w.accounts[id]; ok {
		return id, nil
	}

	accountContext := domain.NewSingleAddressAccountContext(id, addr.EncodeAddress())

	tx := w.repo.NewTransaction()
	if err := w.repo.CreateSingleAddressContext(
		txContext(tx), *accountContext,
	); err != nil {
		tx.Discard()
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		return uuid.Nil, err
	}

	account := domain.NewSingleAddressAccount(
		accountContext,
		domain.NewPublicPrivateKeyStore(w.secureStore),
		w.repo,
		w.chainSvc,
	)
	w.addAccountLocked(account)
	return id, nil
}

// CreateSingleAddressAccountFromKey stores the private key encrypted under
// the given cipher, derives its address and delegates to the address form.
func (w *WalletService) CreateSingleAddressAccountFromKey(
	privKey *btcec.PrivateKey, compressed bool, cipher keycipher.Cipher,
) (domain.AccountID, error) {
	pubKey := privKey.PubKey()
	pubKeyBytes := pubKey.SerializeCompressed()
	if !compressed {
		pubKeyBytes = pubKey.SerializeUncompressed()
	}
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pubKeyBytes), w.network,
	)
	if err != nil {
		return uuid.Nil, err
	}

	keyStore := domain.NewPublicPrivateKeyStore(w.secureStore)
	if err := keyStore.SetPrivateKey(
		addr.EncodeAddress(), privKey, compressed, cipher,
	); err != nil {
		return uuid.Nil, err
	}
	return w.CreateSingleAddressAccount(addr)
}

// ImportAccountFromString detects what the free-form input is, a plain
// address, a WIF or mini format private key, or a backup URI, and creates
// the matching single-address account. Spendable inputs need the cipher to
// protect the imported key; watch-only inputs ignore it.
func (w *WalletService) ImportAccountFromString(
	input string, cipher keycipher.Cipher,
) (domain.AccountID, error) {
	rec, ok := record.FromString(strings.TrimSpace(input), w.network)
	if !ok {
		return uuid.Nil, ErrUnknownInputFormat
	}

	if rec.HasPrivateKey() {
		privKey, err := rec.PrivateKey()
		if err != nil {
			return uuid.Nil, err
		}
		compressed := len(rec.PublicKeyBytes) == btcec.PubKeyBytesLenCompressed
		return w.CreateSingleAddressAccountFromKey(privKey, compressed, cipher)
	}

	addr, err := btcutil.DecodeAddress(rec.Address.String(), w.network)
	if err != nil {
		return uuid.Nil, err
	}
	return w.CreateSingleAddressAccount(addr)
}

// DeleteSingleAddressAccount forgets the account's key material, detaches
// its event handler and removes both the persisted context and the live
// registry entry. HD accounts cannot be deleted through this path; passing
// an HD id is a no-op.
func (w *WalletService) DeleteSingleAddressAccount(
	id domain.AccountID, cipher keycipher.Cipher,
) error {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	account, ok := w.accounts[id]
	if !ok {
		return nil
	}
	singleAddressAccount, ok := account.(*domain.SingleAddressAccount)
	if !ok {
		log.WithField("id", id).Debug("ignoring delete of non single-address account")
		return nil
	}

	if err := singleAddressAccount.ForgetPrivateKey(cipher); err != nil {
		return err
	}
	singleAddressAccount.SetEventHandler(nil)

	tx := w.repo.NewTransaction()
	if err := w.repo.DeleteSingleAddressContext(txContext(tx), id); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		return err
	}

	delete(w.accounts, id)
	w.removeFromOrderLocked(id)
	log.WithField("id", id).Info("account deleted")
	return nil
}

// CanCreateAdditionalBip44Account returns whether the contiguity policy
// allows creating the next HD account: the first account is always
// creatable once a master seed exists, every further index only after the
// last account has had activity. The gap avoidance keeps every derivation
// path reachable on restore.
func (w *WalletService) CanCreateAdditionalBip44Account() bool {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	return w.canCreateAdditionalBip44AccountLocked()
}

func (w *WalletService) canCreateAdditionalBip44AccountLocked() bool {
	if !w.HasMasterSeed() {
		return false
	}
	if len(w.hdAccounts) == 0 {
		return true
	}
	last := w.hdAccounts[len(w.hdAccounts)-1]
	return last.HasHadActivity()
}

// CreateAdditionalBip44Account derives the keys of the next HD account
// index, persists its context and registers the new account. Context
// persistence and in-memory registration are atomic: if persistence fails
// no in-memory account exists.
func (w *WalletService) CreateAdditionalBip44Account(
	cipher keycipher.Cipher,
) (domain.AccountID, error) {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	if !w.canCreateAdditionalBip44AccountLocked() {
		return uuid.Nil, domain.ErrAccountCreationNotAllowed
	}

	seed, err := w.MasterSeed(cipher)
	if err != nil {
		return uuid.Nil, err
	}
	root, err := hdkeys.MasterKeyFromSeed(seed, w.network)
	if err != nil {
		return uuid.Nil, err
	}

	accountIndex := len(w.hdAccounts)

	tx := w.repo.NewTransaction()
	keyManager, err := hdkeys.NewAccountKeyManager(
		root, accountIndex, w.network, w.secureStore, cipher,
	)
	if err != nil {
		tx.Discard()
		return uuid.Nil, err
	}

	accountContext := domain.NewHDAccountContext(keyManager.ID(), accountIndex)
	if err := w.repo.CreateHDContext(txContext(tx), *accountContext); err != nil {
		tx.Discard()
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		return uuid.Nil, err
	}

	account, err := domain.NewHDAccount(accountContext, keyManager, w.repo, w.chainSvc)
	if err != nil {
		return uuid.Nil, err
	}
	w.addAccountLocked(account)
	w.hdAccounts = append(w.hdAccounts, account)
	return account.ID(), nil
}

// GetAccount returns the account with the given id. An unknown id is a
// programmer error surfaced as ErrAccountNotFound.
func (w *WalletService) GetAccount(id domain.AccountID) (domain.Account, error) {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	account, ok := w.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// HasAccount returns whether the wallet has an account with the given id.
func (w *WalletService) HasAccount(id domain.AccountID) bool {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	_, ok := w.accounts[id]
	return ok
}

// AccountIDs returns the ids of all managed accounts in registration order.
func (w *WalletService) AccountIDs() []domain.AccountID {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	return append([]domain.AccountID(nil), w.accountOrder...)
}

// GetActiveAccounts returns the accounts that are not archived.
func (w *WalletService) GetActiveAccounts() []domain.Account {
	return w.filterAccounts(func(a domain.Account) bool {
		return !a.IsArchived()
	})
}

// GetArchivedAccounts returns the archived accounts.
func (w *WalletService) GetArchivedAccounts() []domain.Account {
	return w.filterAccounts(func(a domain.Account) bool {
		return a.IsArchived()
	})
}

// GetSpendingAccounts returns the active accounts that can spend.
func (w *WalletService) GetSpendingAccounts() []domain.Account {
	return w.filterAccounts(func(a domain.Account) bool {
		return a.IsActive() && a.CanSpend()
	})
}

// GetSpendingAccountsWithBalance returns the active accounts that can spend
// and have a positive spendable balance.
func (w *WalletService) GetSpendingAccountsWithBalance() []domain.Account {
	return w.filterAccounts(func(a domain.Account) bool {
		return a.IsActive() && a.CanSpend() && a.Balance().Spendable() > 0
	})
}

// GetAccountByAddress returns the id of the account owning the given
// address, if any.
func (w *WalletService) GetAccountByAddress(address string) (domain.AccountID, bool) {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	for _, id := range w.accountOrder {
		if w.accounts[id].IsMine(address) {
			return id, true
		}
	}
	return uuid.Nil, false
}

// IsMyAddress returns whether any account in the wallet owns the address.
func (w *WalletService) IsMyAddress(address string) bool {
	_, ok := w.GetAccountByAddress(address)
	return ok
}

// HasPrivateKeyForAddress returns whether any account holds the private key
// of the given address.
func (w *WalletService) HasPrivateKeyForAddress(address string) bool {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	for _, id := range w.accountOrder {
		account := w.accounts[id]
		if account.IsMine(address) && account.CanSpend() {
			return true
		}
	}
	return false
}

func (w *WalletService) String() string {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	active := 0
	for _, account := range w.accounts {
		if !account.IsArchived() {
			active++
		}
	}
	return fmt.Sprintf(
		"Accounts: %d Active: %d HD: %d Simple: %d",
		len(w.accounts), active, len(w.hdAccounts),
		len(w.accounts)-len(w.hdAccounts),
	)
}

func (w *WalletService) filterAccounts(
	keep func(domain.Account) bool,
) []domain.Account {
	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	filtered := make([]domain.Account, 0, len(w.accountOrder))
	for _, id := range w.accountOrder {
		if account := w.accounts[id]; keep(account) {
			filtered = append(filtered, account)
		}
	}
	return filtered
}

func (w *WalletService) loadAccounts() error {
	if w.HasMasterSeed() {
		if err := w.loadHDAccounts(); err != nil {
			return err
		}
	}
	return w.loadSingleAddressAccounts()
}

func (w *WalletService) loadHDAccounts() error {
	log.Info("loading HD accounts")

	contexts, err := w.repo.GetAllHDContexts(context.Background())
	if err != nil {
		return err
	}
	sort.Slice(contexts, func(i, j int) bool {
		return contexts[i].AccountIndex < contexts[j].AccountIndex
	})

	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	for i := range contexts {
		accountContext := contexts[i]
		keyManager, err := hdkeys.LoadAccountKeyManager(
			accountContext.AccountIndex, w.network, w.secureStore,
		)
		if err != nil {
			return err
		}
		account, err := domain.NewHDAccount(
			&accountContext, keyManager, w.repo, w.chainSvc,
		)
		if err != nil {
			return err
		}
		w.addAccountLocked(account)
		w.hdAccounts = append(w.hdAccounts, account)
	}
	return nil
}

func (w *WalletService) loadSingleAddressAccounts() error {
	log.Info("loading single address accounts")

	contexts, err := w.repo.GetAllSingleAddressContexts(context.Background())
	if err != nil {
		return err
	}

	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()
	for i := range contexts {
		accountContext := contexts[i]
		account := domain.NewSingleAddressAccount(
			&accountContext,
			domain.NewPublicPrivateKeyStore(w.secureStore),
			w.repo,
			w.chainSvc,
		)
		w.addAccountLocked(account)
	}
	return nil
}

func (w *WalletService) addAccountLocked(account domain.Account) {
	account.SetEventHandler(w.notifyAccountEvent)
	w.accounts[account.ID()] = account
	w.accountOrder = append(w.accountOrder, account.ID())
	log.WithField("id", account.ID()).Info("account added")
}

func (w *WalletService) removeFromOrderLocked(id domain.AccountID) {
	for i, existing := range w.accountOrder {
		if existing == id {
			w.accountOrder = append(w.accountOrder[:i], w.accountOrder[i+1:]...)
			return
		}
	}
}

// txContext returns a context carrying the given persistence transaction,
// for repositories to join.
func txContext(tx ports.Transaction) context.Context {
	return context.WithValue(context.Background(), "tx", tx)
}
