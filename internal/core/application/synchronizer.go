package application

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/walletkit/walletd/internal/core/domain"
)

// Synchronize starts a background synchronization pass and returns
// immediately. At most one pass runs at a time; requests arriving while a
// pass is in flight are dropped.
//
// A pass has two phases: first any queued outgoing transactions of every
// non-archived account are broadcast, then every non-archived account is
// refreshed against the chain. The first failing account aborts the whole
// pass and announces EventServerConnectionError; the remaining accounts are
// retried on the next pass.
func (w *WalletService) Synchronize() {
	if w.ctx.Err() != nil {
		return
	}
	if !atomic.CompareAndSwapInt32(&w.syncing, 0, 1) {
		return
	}
	w.workerWg.Add(1)
	go w.runSynchronizationPass()
}

func (w *WalletService) runSynchronizationPass() {
	defer w.workerWg.Done()

	w.setStateAndNotify(domain.StateSynchronizing)
	defer func() {
		atomic.StoreInt32(&w.syncing, 0)
		w.setStateAndNotify(domain.StateReady)
	}()

	w.accountsMtx.Lock()
	defer w.accountsMtx.Unlock()

	if !w.broadcastOutgoingTransactionsLocked() {
		return
	}
	w.synchronizeAccountsLocked()
}

func (w *WalletService) broadcastOutgoingTransactionsLocked() bool {
	for _, id := range w.accountOrder {
		if w.ctx.Err() != nil {
			return false
		}
		account := w.accounts[id]
		if account.IsArchived() {
			continue
		}
		if err := account.BroadcastOutgoingTransactions(); err != nil {
			log.WithError(err).WithField("account", id).Warn(
				"aborting synchronization: failed to broadcast outgoing transactions",
			)
			w.notifyAccountEvent(id, domain.EventServerConnectionError)
			return false
		}
	}
	return true
}

func (w *WalletService) synchronizeAccountsLocked() {
	includeHistory := atomic.LoadInt32(&w.syncHistory) == 1

	for _, id := range w.accountOrder {
		if w.ctx.Err() != nil {
			return
		}
		account := w.accounts[id]
		if account.IsArchived() {
			continue
		}
		if err := account.Synchronize(includeHistory); err != nil {
			log.WithError(err).WithField("account", id).Warn(
				"aborting synchronization: failed to synchronize account",
			)
			w.notifyAccountEvent(id, domain.EventServerConnectionError)
			return
		}
	}
}

func (w *WalletService) setStateAndNotify(state domain.WalletState) {
	w.stateMtx.Lock()
	w.state = state
	w.stateMtx.Unlock()
	w.enqueue(notification{isStateChange: true, state: state})
}

func (w *WalletService) notifyAccountEvent(id domain.AccountID, event domain.AccountEvent) {
	w.enqueue(notification{accountID: id, event: event})
}

// enqueue never blocks the caller: when the queue is full the notification
// is dropped, favouring engine liveness over delivery of every event. A
// healthy observer drains far faster than the engine produces.
func (w *WalletService) enqueue(n notification) {
	select {
	case w.notifications <- n:
	default:
		log.Warn("notification queue full, dropping notification")
	}
}

func (w *WalletService) dispatchNotifications() {
	defer w.dispatcherWg.Done()
	for n := range w.notifications {
		w.observersMtx.Lock()
		observers := make([]Observer, len(w.observers))
		copy(observers, w.observers)
		w.observersMtx.Unlock()

		for _, observer := range observers {
			if n.isStateChange {
				observer.OnWalletStateChanged(w, n.state)
			} else {
				observer.OnAccountEvent(w, n.accountID, n.event)
			}
		}
	}
}
