package ports

// AddressesState is the aggregated on-chain state of a set of addresses as
// reported by the chain-query service.
type AddressesState struct {
	// ConfirmedBalance is the spendable balance in satoshis.
	ConfirmedBalance uint64
	// UnconfirmedBalance is the balance of mempool transactions in satoshis.
	UnconfirmedBalance uint64
	// TxCount is the total number of transactions touching the addresses.
	TxCount int
	// UsedAddresses lists the queried addresses that appear on chain.
	UsedAddresses []string
}

// ChainService is the remote chain-query/broadcast API. All errors returned
// by its methods are transient network-class failures; a rejected
// transaction is not an error.
type ChainService interface {
	// BroadcastTransaction submits a raw transaction in hex. It returns
	// whether the network accepted it, or an error if the service was
	// unreachable.
	BroadcastTransaction(txHex string) (accepted bool, err error)
	// FetchAddressesState returns the balance, and optionally the
	// transaction history size, of the given addresses.
	FetchAddressesState(addresses []string, includeHistory bool) (*AddressesState, error)
}
