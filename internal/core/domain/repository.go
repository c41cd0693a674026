package domain

import (
	"context"

	"github.com/walletkit/walletd/internal/core/ports"
)

// AccountContextRepository is the transactional store of account contexts.
// Mutating operations participate in the transaction carried by the given
// context.Context when one is present; a transaction is obtained from
// NewTransaction and must be committed explicitly or discarded on any
// failure.
type AccountContextRepository interface {
	NewTransaction() ports.Transaction

	// GetAllHDContexts returns every persisted HD account context, ordered
	// by ascending account index.
	GetAllHDContexts(ctx context.Context) ([]HDAccountContext, error)
	// GetAllSingleAddressContexts returns every persisted single-address
	// account context.
	GetAllSingleAddressContexts(ctx context.Context) ([]SingleAddressAccountContext, error)

	CreateHDContext(ctx context.Context, accountContext HDAccountContext) error
	CreateSingleAddressContext(ctx context.Context, accountContext SingleAddressAccountContext) error

	UpdateHDContext(ctx context.Context, accountContext HDAccountContext) error
	UpdateSingleAddressContext(ctx context.Context, accountContext SingleAddressAccountContext) error

	// DeleteSingleAddressContext removes the persisted context of a
	// single-address account. HD contexts cannot be deleted.
	DeleteSingleAddressContext(ctx context.Context, id AccountID) error
}
