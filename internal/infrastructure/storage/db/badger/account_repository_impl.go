package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/walletkit/walletd/internal/core/domain"
	"github.com/walletkit/walletd/internal/core/ports"
)

type accountRepositoryImpl struct {
	db *DbManager
}

// NewAccountRepositoryImpl initializes a badger implementation of the
// domain.AccountContextRepository
func NewAccountRepositoryImpl(db *DbManager) domain.AccountContextRepository {
	return accountRepositoryImpl{
		db: db,
	}
}

func (r accountRepositoryImpl) NewTransaction() ports.Transaction {
	return r.db.NewTransaction()
}

func (r accountRepositoryImpl) GetAllHDContexts(
	ctx context.Context,
) ([]domain.HDAccountContext, error) {
	contexts := []domain.HDAccountContext{}
	query := &badgerhold.Query{}

	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.db.Store.TxFind(tx, &contexts, query)
	} else {
		err = r.db.Store.Find(&contexts, query)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(contexts, func(i, j int) bool {
		return contexts[i].AccountIndex < contexts[j].AccountIndex
	})
	return contexts, nil
}

func (r accountRepositoryImpl) GetAllSingleAddressContexts(
	ctx context.Context,
) ([]domain.SingleAddressAccountContext, error) {
	contexts := []domain.SingleAddressAccountContext{}
	query := &badgerhold.Query{}

	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.db.Store.TxFind(tx, &contexts, query)
	} else {
		err = r.db.Store.Find(&contexts, query)
	}
	if err != nil {
		return nil, err
	}
	return contexts, nil
}

func (r accountRepositoryImpl) CreateHDContext(
	ctx context.Context, accountContext domain.HDAccountContext,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.db.Store.TxInsert(tx, accountContext.ID.String(), &accountContext)
	}
	return r.db.Store.Insert(accountContext.ID.String(), &accountContext)
}

func (r accountRepositoryImpl) CreateSingleAddressContext(
	ctx context.Context, accountContext domain.SingleAddressAccountContext,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.db.Store.TxInsert(tx, accountContext.ID.String(), &accountContext)
	}
	return r.db.Store.Insert(accountContext.ID.String(), &accountContext)
}

func (r accountRepositoryImpl) UpdateHDContext(
	ctx context.Context, accountContext domain.HDAccountContext,
) error {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.db.Store.TxUpdate(tx, accountContext.ID.String(), &accountContext)
	} else {
		err = r.db.Store.Update(accountContext.ID.String(), &accountContext)
	}
	if err == badgerhold.ErrNotFound {
		return domain.ErrAccountNotFound
	}
	return err
}

func (r accountRepositoryImpl) UpdateSingleAddressContext(
	ctx context.Context, accountContext domain.SingleAddressAccountContext,
) error {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.db.Store.TxUpdate(tx, accountContext.ID.String(), &accountContext)
	} else {
		err = r.db.Store.Update(accountContext.ID.String(), &accountContext)
	}
	if err == badgerhold.ErrNotFound {
		return domain.ErrAccountNotFound
	}
	return err
}

func (r accountRepositoryImpl) DeleteSingleAddressContext(
	ctx context.Context, id domain.AccountID,
) error {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.db.Store.TxDelete(
			tx, id.String(), domain.SingleAddressAccountContext{},
		)
	} else {
		err = r.db.Store.Delete(id.String(), domain.SingleAddressAccountContext{})
	}
	if err == badgerhold.ErrNotFound {
		return nil
	}
	return err
}
