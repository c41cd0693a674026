package inmemory

import (
	"context"
	"sync"

	"github.com/walletkit/walletd/internal/core/domain"
	"github.com/walletkit/walletd/internal/core/ports"
)

// AccountRepositoryImpl is a non-persistent AccountContextRepository used in
// tests and local development. Transactions are no-ops: every mutation is
// applied immediately under the repository lock.
type AccountRepositoryImpl struct {
	lock               *sync.RWMutex
	hdContexts         map[domain.AccountID]domain.HDAccountContext
	singleAddrContexts map[domain.AccountID]domain.SingleAddressAccountContext
}

// NewAccountRepositoryImpl returns an empty in-memory repository.
func NewAccountRepositoryImpl() domain.AccountContextRepository {
	return &AccountRepositoryImpl{
		lock:               &sync.RWMutex{},
		hdContexts:         map[domain.AccountID]domain.HDAccountContext{},
		singleAddrContexts: map[domain.AccountID]domain.SingleAddressAccountContext{},
	}
}

type noopTransaction struct{}

func (t noopTransaction) Commit() error { return nil }
func (t noopTransaction) Discard()      {}

func (r *AccountRepositoryImpl) NewTransaction() ports.Transaction {
	return noopTransaction{}
}

func (r *AccountRepositoryImpl) GetAllHDContexts(
	_ context.Context,
) ([]domain.HDAccountContext, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	contexts := make([]domain.HDAccountContext, 0, len(r.hdContexts))
	for _, accountContext := range r.hdContexts {
		contexts = append(contexts, accountContext)
	}
	return contexts, nil
}

func (r *AccountRepositoryImpl) GetAllSingleAddressContexts(
	_ context.Context,
) ([]domain.SingleAddressAccountContext, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	contexts := make([]domain.SingleAddressAccountContext, 0, len(r.singleAddrContexts))
	for _, accountContext := range r.singleAddrContexts {
		contexts = append(contexts, accountContext)
	}
	return contexts, nil
}

func (r *AccountRepositoryImpl) CreateHDContext(
	_ context.Context, accountContext domain.HDAccountContext,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.hdContexts[accountContext.ID] = accountContext
	return nil
}

func (r *AccountRepositoryImpl) CreateSingleAddressContext(
	_ context.Context, accountContext domain.SingleAddressAccountContext,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.singleAddrContexts[accountContext.ID] = accountContext
	return nil
}

func (r *AccountRepositoryImpl) UpdateHDContext(
	_ context.Context, accountContext domain.HDAccountContext,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.hdContexts[accountContext.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	r.hdContexts[accountContext.ID] = accountContext
	return nil
}

func (r *AccountRepositoryImpl) UpdateSingleAddressContext(
	_ context.Context, accountContext domain.SingleAddressAccountContext,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.singleAddrContexts[accountContext.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	r.singleAddrContexts[accountContext.ID] = accountContext
	return nil
}

func (r *AccountRepositoryImpl) DeleteSingleAddressContext(
	_ context.Context, id domain.AccountID,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.singleAddrContexts, id)
	return nil
}
