package domain

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/walletkit/walletd/internal/core/ports"
	"github.com/walletkit/walletd/pkg/keycipher"
)

// SingleAddressAccount is a 'classic' account consisting of exactly one
// address, with or without its private key.
type SingleAddressAccount struct {
	baseAccount
	accountContext *SingleAddressAccountContext
	keyStore       *PublicPrivateKeyStore
	repo           AccountContextRepository
}

// NewSingleAddressAccount wires a live single-address account around its
// persisted context.
func NewSingleAddressAccount(
	accountContext *SingleAddressAccountContext,
	keyStore *PublicPrivateKeyStore,
	repo AccountContextRepository,
	chain ports.ChainService,
) *SingleAddressAccount {
	return &SingleAddressAccount{
		baseAccount:    baseAccount{chain: chain},
		accountContext: accountContext,
		keyStore:       keyStore,
		repo:           repo,
	}
}

func (a *SingleAddressAccount) ID() AccountID {
	return a.accountContext.ID
}

func (a *SingleAddressAccount) IsArchived() bool {
	return a.accountContext.Archived
}

func (a *SingleAddressAccount) IsActive() bool {
	return !a.accountContext.Archived
}

// CanSpend returns whether the private key of the address is in the secure
// store. A watch-only account has none.
func (a *SingleAddressAccount) CanSpend() bool {
	return a.keyStore.HasPrivateKey(a.accountContext.Address)
}

func (a *SingleAddressAccount) IsMine(address string) bool {
	return a.accountContext.Address == address
}

func (a *SingleAddressAccount) HasHadActivity() bool {
	return a.accountContext.ActivityCounter > 0 || a.txCount > 0
}

func (a *SingleAddressAccount) ReceivingAddress() string {
	return a.accountContext.Address
}

// SetArchived flips the archived flag and persists the context.
func (a *SingleAddressAccount) SetArchived(archived bool) error {
	a.accountContext.Archived = archived
	return a.repo.UpdateSingleAddressContext(context.Background(), *a.accountContext)
}

// SigningKey decrypts and returns the account's private key.
func (a *SingleAddressAccount) SigningKey(cipher keycipher.Cipher) (*btcec.PrivateKey, error) {
	return a.keyStore.PrivateKey(a.accountContext.Address, cipher)
}

// ForgetPrivateKey irreversibly drops the account's private key material,
// turning it into a watch-only account. It fails with
// keycipher.ErrInvalidCipher if the cipher cannot decrypt the stored key.
func (a *SingleAddressAccount) ForgetPrivateKey(cipher keycipher.Cipher) error {
	return a.keyStore.ForgetPrivateKey(a.accountContext.Address, cipher)
}

func (a *SingleAddressAccount) BroadcastOutgoingTransactions() error {
	return a.broadcastOutgoing(a.ID())
}

// Synchronize refreshes the balance and optionally the transaction history
// of the single address. A balance change bumps the persisted activity
// counter.
func (a *SingleAddressAccount) Synchronize(includeHistory bool) error {
	state, err := a.chain.FetchAddressesState(
		[]string{a.accountContext.Address}, includeHistory,
	)
	if err != nil {
		return err
	}

	newBalance := Balance{
		Confirmed:   state.ConfirmedBalance,
		Unconfirmed: state.UnconfirmedBalance,
	}
	if newBalance != a.balance {
		a.balance = newBalance
		a.accountContext.ActivityCounter++
		if err := a.repo.UpdateSingleAddressContext(
			context.Background(), *a.accountContext,
		); err != nil {
			return err
		}
		a.emit(a.ID(), EventBalanceChanged)
	}

	if includeHistory && state.TxCount != a.txCount {
		a.txCount = state.TxCount
		a.emit(a.ID(), EventTransactionHistoryChanged)
	}
	return nil
}
