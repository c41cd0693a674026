package domain

// WalletState is the process-wide synchronization state of the wallet.
type WalletState int

const (
	// StateReady means no synchronization pass is running.
	StateReady WalletState = iota
	// StateSynchronizing means the background worker is running a pass.
	StateSynchronizing
)

func (s WalletState) String() string {
	switch s {
	case StateSynchronizing:
		return "SYNCHRONIZING"
	default:
		return "READY"
	}
}

// AccountEvent is an event that occurred on an account, typically while
// synchronizing.
type AccountEvent int

const (
	// EventServerConnectionError signals that the chain-query service could
	// not be reached. The current pass is aborted; a later manual
	// synchronization retries from the top.
	EventServerConnectionError AccountEvent = iota
	// EventBroadcastedTransactionAccepted signals that a queued outgoing
	// transaction was accepted by the network.
	EventBroadcastedTransactionAccepted
	// EventBroadcastedTransactionDenied signals that a queued outgoing
	// transaction was rejected by the network.
	EventBroadcastedTransactionDenied
	// EventBalanceChanged signals that the balance of the account changed.
	EventBalanceChanged
	// EventTransactionHistoryChanged signals that the transaction history of
	// the account changed.
	EventTransactionHistoryChanged
	// EventReceivingAddressChanged signals that the receiving address of the
	// account has been updated.
	EventReceivingAddressChanged
)

func (e AccountEvent) String() string {
	switch e {
	case EventServerConnectionError:
		return "SERVER_CONNECTION_ERROR"
	case EventBroadcastedTransactionAccepted:
		return "BROADCASTED_TRANSACTION_ACCEPTED"
	case EventBroadcastedTransactionDenied:
		return "BROADCASTED_TRANSACTION_DENIED"
	case EventBalanceChanged:
		return "BALANCE_CHANGED"
	case EventTransactionHistoryChanged:
		return "TRANSACTION_HISTORY_CHANGED"
	case EventReceivingAddressChanged:
		return "RECEIVING_ADDRESS_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// EventHandler receives the events emitted by an account. The registry
// installs one on every account it owns to fan events out to its observers.
type EventHandler func(accountID AccountID, event AccountEvent)
