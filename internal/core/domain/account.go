package domain

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"github.com/walletkit/walletd/internal/core/ports"
)

// AccountID is the stable 128-bit identifier of an account. It never changes
// after creation.
type AccountID = uuid.UUID

// NewSingleAddressAccountID derives the id of a single-address account from
// the canonical byte encoding of its address. The derivation is
// deterministic by design: creating the same address twice yields the same
// id, which is what makes account creation idempotent.
func NewSingleAddressAccountID(addr btcutil.Address, net *chaincfg.Params) AccountID {
	digest := sha256.Sum256(addressBytes(addr, net))
	id, _ := uuid.FromBytes(digest[:16])
	return id
}

// addressBytes is the canonical encoding of a P2PKH address: the network
// version byte followed by the 20 byte public key hash.
func addressBytes(addr btcutil.Address, net *chaincfg.Params) []byte {
	return append([]byte{net.PubKeyHashAddrID}, addr.ScriptAddress()...)
}

// Balance is the on-chain balance of an account in satoshis.
type Balance struct {
	Confirmed   uint64
	Unconfirmed uint64
}

// Spendable returns the balance that can be spent right now.
func (b Balance) Spendable() uint64 {
	return b.Confirmed
}

// Account is a live wallet account. It wraps a persisted context, a key
// manager or key store handle and a backing handle; the network and backing
// handles are owned by the account, not shared.
type Account interface {
	ID() AccountID
	// IsArchived returns whether the account is hidden from active views and
	// skipped by synchronization.
	IsArchived() bool
	// IsActive is the negation of IsArchived.
	IsActive() bool
	// CanSpend returns whether the account holds usable private key material.
	CanSpend() bool
	// IsMine returns whether the given address belongs to this account.
	IsMine(address string) bool
	// HasHadActivity returns whether the account has ever seen a confirmed
	// or receiving transaction.
	HasHadActivity() bool
	Balance() Balance
	// ReceivingAddress returns the current address for receiving funds.
	ReceivingAddress() string
	// SetEventHandler installs the handler receiving this account's events.
	// A nil handler detaches the account.
	SetEventHandler(handler EventHandler)
	// QueueOutgoingTransaction enqueues a raw transaction in hex for
	// broadcasting on the next synchronization pass.
	QueueOutgoingTransaction(txHex string)
	// BroadcastOutgoingTransactions submits all queued outgoing transactions.
	// It returns a transient error as soon as the chain service is
	// unreachable; rejected transactions are reported as events, not errors.
	BroadcastOutgoingTransactions() error
	// Synchronize refreshes the account's balance and, optionally, its
	// transaction history from the chain-query service.
	Synchronize(includeHistory bool) error
}

// baseAccount carries the state and behavior shared by all account
// variants: the chain handle, the queued outgoing transactions, the cached
// balance and the event plumbing.
type baseAccount struct {
	chain        ports.ChainService
	eventHandler EventHandler
	balance      Balance
	txCount      int
	outgoing     []string
}

func (b *baseAccount) Balance() Balance {
	return b.balance
}

func (b *baseAccount) SetEventHandler(handler EventHandler) {
	b.eventHandler = handler
}

func (b *baseAccount) QueueOutgoingTransaction(txHex string) {
	b.outgoing = append(b.outgoing, txHex)
}

func (b *baseAccount) emit(id AccountID, event AccountEvent) {
	if b.eventHandler != nil {
		b.eventHandler(id, event)
	}
}

// broadcastOutgoing submits the queued transactions one by one. Accepted and
// denied transactions are dropped from the queue and reported as events; an
// unreachable service leaves the remaining queue untouched and returns the
// error so the whole pass can be aborted.
func (b *baseAccount) broadcastOutgoing(id AccountID) error {
	for len(b.outgoing) > 0 {
		accepted, err := b.chain.BroadcastTransaction(b.outgoing[0])
		if err != nil {
			return err
		}
		b.outgoing = b.outgoing[1:]
		if accepted {
			b.emit(id, EventBroadcastedTransactionAccepted)
		} else {
			b.emit(id, EventBroadcastedTransactionDenied)
		}
	}
	return nil
}
