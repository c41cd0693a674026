package application

import (
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletkit/walletd/internal/core/domain"
	"github.com/walletkit/walletd/internal/core/ports"
)

var testAddresses = []string{
	"1BitcoinEaterAddressDontSendf59kuE",
	"1CounterpartyXXXXXXXXXXXXXXXUWLpVr",
	"1111111111111111111114oLvT2",
}

func TestSynchronizePassEmitsStatesAndEvents(t *testing.T) {
	w := newTestWallet(t)

	id, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)
	w.chain.setState(testAddresses[0], ports.AddressesState{
		ConfirmedBalance: 5000,
		TxCount:          2,
	})

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	assert.Equal(t, []domain.WalletState{
		domain.StateSynchronizing, domain.StateReady,
	}, observer.stateChanges())
	assert.Equal(t, []domain.AccountEvent{
		domain.EventBalanceChanged, domain.EventTransactionHistoryChanged,
	}, observer.eventsFor(id))

	account, err := w.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Confirmed: 5000}, account.Balance())
	assert.True(t, account.HasHadActivity())

	// a second pass with nothing changed emits no further account events
	runSyncPass(t, w.WalletService, observer)
	assert.Len(t, observer.eventsFor(id), 2)
}

func TestSynchronizeAbortsOnFirstFailingAccount(t *testing.T) {
	w := newTestWallet(t)

	ids := make([]domain.AccountID, len(testAddresses))
	for i, address := range testAddresses {
		id, err := w.CreateSingleAddressAccount(testAddress(t, address))
		require.NoError(t, err)
		ids[i] = id
	}
	w.chain.setFailing(testAddresses[1], true)

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	// the pass stops at the failing account; the one after it is not queried
	synced := w.chain.syncedAddresses()
	require.Len(t, synced, 2)
	assert.Equal(t, []string{testAddresses[0]}, synced[0])
	assert.Equal(t, []string{testAddresses[1]}, synced[1])

	assert.Equal(t, []domain.AccountEvent{
		domain.EventServerConnectionError,
	}, observer.eventsFor(ids[1]))
	assert.Empty(t, observer.eventsFor(ids[2]))

	// the wallet still settles back to ready
	assert.Equal(t, domain.StateReady, w.State())

	// the next pass retries from the start
	w.chain.setFailing(testAddresses[1], false)
	runSyncPass(t, w.WalletService, observer)
	assert.Len(t, w.chain.syncedAddresses(), 5)
}

func TestSynchronizeSkipsArchivedAccounts(t *testing.T) {
	w := newTestWallet(t)

	_, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)
	archivedID, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[1]))
	require.NoError(t, err)

	account, err := w.GetAccount(archivedID)
	require.NoError(t, err)
	require.NoError(t, account.(*domain.SingleAddressAccount).SetArchived(true))

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	synced := w.chain.syncedAddresses()
	require.Len(t, synced, 1)
	assert.Equal(t, []string{testAddresses[0]}, synced[0])
}

func TestSynchronizeBroadcastsQueuedTransactions(t *testing.T) {
	w := newTestWallet(t)
	cipher := fakeCipher{"secret"}

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id, err := w.CreateSingleAddressAccountFromKey(privKey, true, cipher)
	require.NoError(t, err)

	account, err := w.GetAccount(id)
	require.NoError(t, err)
	account.QueueOutgoingTransaction("0200beef")

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	assert.Equal(t, []string{"0200beef"}, w.chain.broadcasted())
	assert.Equal(t, []domain.AccountEvent{
		domain.EventBroadcastedTransactionAccepted,
	}, observer.eventsFor(id))

	// the queue is drained, a second pass broadcasts nothing
	runSyncPass(t, w.WalletService, observer)
	assert.Len(t, w.chain.broadcasted(), 1)
}

func TestSynchronizeReportsDeniedTransactions(t *testing.T) {
	w := newTestWallet(t)

	id, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)
	account, err := w.GetAccount(id)
	require.NoError(t, err)
	account.QueueOutgoingTransaction("0200beef")
	w.chain.rejectNext = true

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	assert.Equal(t, []domain.AccountEvent{
		domain.EventBroadcastedTransactionDenied,
	}, observer.eventsFor(id))
}

func TestSynchronizeKeepsQueueOnBroadcastFailure(t *testing.T) {
	w := newTestWallet(t)

	id, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)
	account, err := w.GetAccount(id)
	require.NoError(t, err)
	account.QueueOutgoingTransaction("0200beef")
	w.chain.failBroadcast = true

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	// the broadcast phase aborts the whole pass: no account was synchronized
	assert.Empty(t, w.chain.syncedAddresses())
	assert.Equal(t, []domain.AccountEvent{
		domain.EventServerConnectionError,
	}, observer.eventsFor(id))

	// once the service is back the queued transaction goes out
	w.chain.mtx.Lock()
	w.chain.failBroadcast = false
	w.chain.mtx.Unlock()
	runSyncPass(t, w.WalletService, observer)
	assert.Equal(t, []string{"0200beef"}, w.chain.broadcasted())
}

func TestBroadcastPhaseAbortsOnFirstFailingAccount(t *testing.T) {
	w := newTestWallet(t)

	ids := make([]domain.AccountID, len(testAddresses))
	for i, address := range testAddresses {
		id, err := w.CreateSingleAddressAccount(testAddress(t, address))
		require.NoError(t, err)
		ids[i] = id

		account, err := w.GetAccount(id)
		require.NoError(t, err)
		account.QueueOutgoingTransaction(fmt.Sprintf("tx%d", i+1))
	}
	w.chain.failBroadcastFor["tx2"] = true

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	// the first account's broadcast went through, the second failed, and the
	// third was never attempted; the refresh phase did not run either
	assert.Equal(t, []string{"tx1"}, w.chain.broadcasted())
	assert.Empty(t, w.chain.syncedAddresses())

	assert.Equal(t, []domain.AccountEvent{
		domain.EventBroadcastedTransactionAccepted,
	}, observer.eventsFor(ids[0]))
	assert.Equal(t, []domain.AccountEvent{
		domain.EventServerConnectionError,
	}, observer.eventsFor(ids[1]))
	assert.Empty(t, observer.eventsFor(ids[2]))

	assert.Equal(t, domain.StateReady, w.State())
}

func TestSynchronizeWhileRunningIsDropped(t *testing.T) {
	w := newTestWallet(t)

	_, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)

	block := make(chan struct{})
	w.chain.mtx.Lock()
	w.chain.blockSync = block
	w.chain.mtx.Unlock()

	observer := newRecordingObserver()
	w.AddObserver(observer)

	w.Synchronize()
	require.Eventually(t, func() bool {
		return w.State() == domain.StateSynchronizing
	}, 5*time.Second, 10*time.Millisecond)

	// requests while a pass is running are dropped
	w.Synchronize()
	w.Synchronize()

	close(block)
	require.Eventually(t, func() bool {
		return observer.readyCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []domain.WalletState{
		domain.StateSynchronizing, domain.StateReady,
	}, observer.stateChanges())
}

func TestDisableTransactionHistorySynchronization(t *testing.T) {
	w := newTestWallet(t)
	w.DisableTransactionHistorySynchronization()

	id, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)
	w.chain.setState(testAddresses[0], ports.AddressesState{
		ConfirmedBalance: 5000,
		TxCount:          2,
	})

	observer := newRecordingObserver()
	w.AddObserver(observer)
	runSyncPass(t, w.WalletService, observer)

	// balances still synchronize, the history does not
	assert.Equal(t, []domain.AccountEvent{
		domain.EventBalanceChanged,
	}, observer.eventsFor(id))
}

func TestRemoveObserver(t *testing.T) {
	w := newTestWallet(t)

	_, err := w.CreateSingleAddressAccount(testAddress(t, testAddresses[0]))
	require.NoError(t, err)

	kept := newRecordingObserver()
	removed := newRecordingObserver()
	w.AddObserver(kept)
	w.AddObserver(removed)
	w.RemoveObserver(removed)

	runSyncPass(t, w.WalletService, kept)

	assert.NotEmpty(t, kept.stateChanges())
	assert.Empty(t, removed.stateChanges())
}
