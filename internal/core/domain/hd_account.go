package domain

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/walletkit/walletd/internal/core/ports"
	"github.com/walletkit/walletd/pkg/hdkeys"
	"github.com/walletkit/walletd/pkg/keycipher"
)

// HDAccount is an account whose keys are all derived from the wallet's
// master seed via a fixed hierarchical path. HD accounts cannot be deleted,
// only archived.
type HDAccount struct {
	baseAccount
	accountContext *HDAccountContext
	keyManager     *hdkeys.AccountKeyManager
	repo           AccountContextRepository

	// lastExternalIndex is the index of the current receiving address.
	lastExternalIndex uint32
	hasActivity       bool
}

// NewHDAccount wires a live HD account around its persisted context and key
// manager. The first external and internal addresses are derived eagerly so
// the account has a receiving address from the start.
func NewHDAccount(
	accountContext *HDAccountContext,
	keyManager *hdkeys.AccountKeyManager,
	repo AccountContextRepository,
	chain ports.ChainService,
) (*HDAccount, error) {
	account := &HDAccount{
		baseAccount:    baseAccount{chain: chain},
		accountContext: accountContext,
		keyManager:     keyManager,
		repo:           repo,
	}
	if _, err := keyManager.Address(hdkeys.ExternalChain, 0); err != nil {
		return nil, err
	}
	if _, err := keyManager.Address(hdkeys.InternalChain, 0); err != nil {
		return nil, err
	}
	return account, nil
}

func (a *HDAccount) ID() AccountID {
	return a.accountContext.ID
}

// AccountIndex returns the BIP44 index of the account's key subtree.
func (a *HDAccount) AccountIndex() int {
	return a.accountContext.AccountIndex
}

func (a *HDAccount) IsArchived() bool {
	return a.accountContext.Archived
}

func (a *HDAccount) IsActive() bool {
	return !a.accountContext.Archived
}

// CanSpend is always true for HD accounts: the signing keys are re-derivable
// from the encrypted account key.
func (a *HDAccount) CanSpend() bool {
	return true
}

func (a *HDAccount) IsMine(address string) bool {
	return a.keyManager.HasAddress(address)
}

func (a *HDAccount) HasHadActivity() bool {
	return a.hasActivity
}

func (a *HDAccount) ReceivingAddress() string {
	addr, err := a.keyManager.Address(hdkeys.ExternalChain, a.lastExternalIndex)
	if err != nil {
		return ""
	}
	return addr.EncodeAddress()
}

// SetArchived flips the archived flag and persists the context.
func (a *HDAccount) SetArchived(archived bool) error {
	a.accountContext.Archived = archived
	return a.repo.UpdateHDContext(context.Background(), *a.accountContext)
}

// SigningKeyFor returns the private key of one of the account's derived
// addresses.
func (a *HDAccount) SigningKeyFor(
	address string, cipher keycipher.Cipher,
) (*btcec.PrivateKey, error) {
	return a.keyManager.SigningKeyFor(address, cipher)
}

func (a *HDAccount) BroadcastOutgoingTransactions() error {
	return a.broadcastOutgoing(a.ID())
}

// Synchronize refreshes the balance and optionally the transaction history
// of all derived addresses. When the current receiving address shows up on
// chain a fresh one is derived and announced.
func (a *HDAccount) Synchronize(includeHistory bool) error {
	receiving := a.ReceivingAddress()

	state, err := a.chain.FetchAddressesState(
		a.keyManager.DerivedAddresses(), includeHistory,
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
		a.emit(a.ID(), EventBalanceChanged)
	}

	if includeHistory && state.TxCount != a.txCount {
		a.txCount = state.TxCount
		a.emit(a.ID(), EventTransactionHistoryChanged)
	}

	if state.TxCount > 0 || newBalance.Confirmed > 0 || newBalance.Unconfirmed > 0 {
		a.hasActivity = true
	}

	for _, used := range state.UsedAddresses {
		if used == receiving {
			a.lastExternalIndex++
			if _, err := a.keyManager.Address(
				hdkeys.ExternalChain, a.lastExternalIndex,
			); err != nil {
				return err
			}
			a.emit(a.ID(), EventReceivingAddressChanged)
			break
		}
	}
	return nil
}
