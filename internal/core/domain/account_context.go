package domain

// HDAccountContext is the persisted metadata of an HD account. The key
// material itself is re-derived from the master seed on every start, so the
// context only needs to remember which subtree the account owns.
type HDAccountContext struct {
	ID           AccountID
	AccountIndex int
	Archived     bool
}

// NewHDAccountContext returns the context of a freshly created HD account.
func NewHDAccountContext(id AccountID, accountIndex int) *HDAccountContext {
	return &HDAccountContext{
		ID:           id,
		AccountIndex: accountIndex,
	}
}

// SingleAddressAccountContext is the persisted metadata of a single-address
// account.
type SingleAddressAccountContext struct {
	ID       AccountID
	Address  string
	Archived bool
	// ActivityCounter is bumped on every balance-affecting synchronization.
	ActivityCounter int
}

// NewSingleAddressAccountContext returns the context of a freshly created
// single-address account.
func NewSingleAddressAccountContext(id AccountID, address string) *SingleAddressAccountContext {
	return &SingleAddressAccountContext{
		ID:      id,
		Address: address,
	}
}
