package application

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/walletkit/walletd/internal/core/domain"
	"github.com/walletkit/walletd/internal/core/ports"
	"github.com/walletkit/walletd/internal/infrastructure/storage/db/inmemory"
	"github.com/walletkit/walletd/pkg/keycipher"
	"github.com/walletkit/walletd/pkg/securestore"
)

var testMnemonic = []string{
	"abandon", "abandon", "abandon", "abandon", "abandon", "abandon",
	"abandon", "abandon", "abandon", "abandon", "abandon", "about",
}

// fakeCipher tags the plaintext with its secret instead of running the real
// scrypt-based cipher, keeping tests fast while preserving the
// wrong-cipher-fails contract.
type fakeCipher struct {
	secret string
}

func (c fakeCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte(c.secret+":"), plaintext...), nil
}

func (c fakeCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	prefix := []byte(c.secret + ":")
	if !bytes.HasPrefix(ciphertext, prefix) {
		return nil, keycipher.ErrInvalidCipher
	}
	return ciphertext[len(prefix):], nil
}

// memSecureStorage is a map-backed SecureStorage for tests.
type memSecureStorage struct {
	mtx        sync.RWMutex
	ciphertext map[string][]byte
	plaintext  map[string][]byte
}

func newMemSecureStorage() *memSecureStorage {
	return &memSecureStorage{
		ciphertext: map[string][]byte{},
		plaintext:  map[string][]byte{},
	}
}

func (s *memSecureStorage) Has(id []byte) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.ciphertext[string(id)]
	return ok
}

func (s *memSecureStorage) Get(id []byte, cipher keycipher.Cipher) ([]byte, error) {
	s.mtx.RLock()
	value, ok := s.ciphertext[string(id)]
	s.mtx.RUnlock()
	if !ok {
		return nil, keycipher.ErrInvalidCipher
	}
	return cipher.Decrypt(value)
}

func (s *memSecureStorage) Put(id, plaintext []byte, cipher keycipher.Cipher) error {
	value, err := cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.ciphertext[string(id)] = value
	return nil
}

func (s *memSecureStorage) Delete(id []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.ciphertext, string(id))
	return nil
}

func (s *memSecureStorage) GetPlaintext(id []byte) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	value, ok := s.plaintext[string(id)]
	if !ok {
		return nil, keycipher.ErrInvalidCipher
	}
	return value, nil
}

func (s *memSecureStorage) PutPlaintext(id, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.plaintext[string(id)] = value
	return nil
}

func (s *memSecureStorage) DeletePlaintext(id []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.plaintext, string(id))
	return nil
}

func (s *memSecureStorage) Close() error { return nil }

var _ securestore.SecureStorage = (*memSecureStorage)(nil)

// stubChainService serves canned per-address states and records every call.
type stubChainService struct {
	mtx              sync.Mutex
	states           map[string]ports.AddressesState
	failing          map[string]bool
	broadcasts       []string
	rejectNext       bool
	failBroadcast    bool
	failBroadcastFor map[string]bool
	synced           [][]string
	blockSync        chan struct{}
}

func newStubChainService() *stubChainService {
	return &stubChainService{
		states:           map[string]ports.AddressesState{},
		failing:          map[string]bool{},
		failBroadcastFor: map[string]bool{},
	}
}

func (s *stubChainService) BroadcastTransaction(txHex string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.failBroadcast || s.failBroadcastFor[txHex] {
		return false, errors.New("connection refused")
	}
	s.broadcasts = append(s.broadcasts, txHex)
	return !s.rejectNext, nil
}

func (s *stubChainService) FetchAddressesState(
	addresses []string, includeHistory bool,
) (*ports.AddressesState, error) {
	s.mtx.Lock()
	block := s.blockSync
	s.mtx.Unlock()
	if block != nil {
		<-block
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.synced = append(s.synced, addresses)

	aggregate := &ports.AddressesState{}
	for _, address := range addresses {
		if s.failing[address] {
			return nil, errors.New("connection refused")
		}
		state := s.states[address]
		aggregate.ConfirmedBalance += state.ConfirmedBalance
		aggregate.UnconfirmedBalance += state.UnconfirmedBalance
		if includeHistory {
			aggregate.TxCount += state.TxCount
		}
		if state.TxCount > 0 {
			aggregate.UsedAddresses = append(aggregate.UsedAddresses, address)
		}
	}
	return aggregate, nil
}

func (s *stubChainService) setState(address string, state ports.AddressesState) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.states[address] = state
}

func (s *stubChainService) setFailing(address string, failing bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.failing[address] = failing
}

func (s *stubChainService) syncedAddresses() [][]string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([][]string(nil), s.synced...)
}

func (s *stubChainService) broadcasted() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]string(nil), s.broadcasts...)
}

// recordingObserver collects every notification it receives.
type recordingObserver struct {
	mtx    sync.Mutex
	states []domain.WalletState
	events map[domain.AccountID][]domain.AccountEvent
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{events: map[domain.AccountID][]domain.AccountEvent{}}
}

func (o *recordingObserver) OnWalletStateChanged(
	_ *WalletService, state domain.WalletState,
) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingObserver) OnAccountEvent(
	_ *WalletService, accountID domain.AccountID, event domain.AccountEvent,
) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.events[accountID] = append(o.events[accountID], event)
}

func (o *recordingObserver) stateChanges() []domain.WalletState {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return append([]domain.WalletState(nil), o.states...)
}

func (o *recordingObserver) eventsFor(id domain.AccountID) []domain.AccountEvent {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return append([]domain.AccountEvent(nil), o.events[id]...)
}

func (o *recordingObserver) readyCount() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	count := 0
	for _, state := range o.states {
		if state == domain.StateReady {
			count++
		}
	}
	return count
}

type testWallet struct {
	*WalletService
	chain *stubChainService
	store *memSecureStorage
	repo  domain.AccountContextRepository
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()

	store := newMemSecureStorage()
	repo := inmemory.NewAccountRepositoryImpl()
	chain := newStubChainService()

	w, err := NewWalletService(WalletServiceOpts{
		Network:      &chaincfg.MainNetParams,
		SecureStore:  store,
		Repository:   repo,
		ChainService: chain,
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	return &testWallet{WalletService: w, chain: chain, store: store, repo: repo}
}

func testAddress(t *testing.T, encoded string) btcutil.Address {
	t.Helper()
	addr, err := btcutil.DecodeAddress(encoded, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return addr
}

// runSyncPass triggers a synchronization pass and waits for the wallet to
// report ready again.
func runSyncPass(t *testing.T, w *WalletService, observer *recordingObserver) {
	t.Helper()
	before := observer.readyCount()
	w.Synchronize()
	require.Eventually(t, func() bool {
		return observer.readyCount() > before
	}, 5*time.Second, 10*time.Millisecond)
}
