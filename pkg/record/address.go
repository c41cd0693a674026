package record

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// addressByteLen is the canonical encoding length: one version byte plus the
// 20 byte public key hash.
const addressByteLen = 21

// Address is a P2PKH address held both in its canonical byte encoding and in
// its base58 string form, the way legacy records persist it.
type Address struct {
	raw     []byte
	encoded string
}

// NewAddress builds an Address from a persisted byte/string pair.
func NewAddress(raw []byte, encoded string) (Address, error) {
	if len(raw) != addressByteLen || len(encoded) <= 0 {
		return Address{}, ErrInvalidAddress
	}
	return Address{raw: raw, encoded: encoded}, nil
}

// AddressFromBase58 decodes a base58 address string for the given network.
func AddressFromBase58(encoded string, net *chaincfg.Params) (Address, error) {
	decoded, err := btcutil.DecodeAddress(encoded, net)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	addr, ok := decoded.(*btcutil.AddressPubKeyHash)
	if !ok || !addr.IsForNet(net) {
		return Address{}, ErrInvalidAddress
	}

	raw := append([]byte{net.PubKeyHashAddrID}, addr.ScriptAddress()...)
	return Address{raw: raw, encoded: addr.EncodeAddress()}, nil
}

// AddressFromPublicKey derives the P2PKH address of a serialized public key.
func AddressFromPublicKey(pubKey []byte, net *chaincfg.Params) (Address, error) {
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKey), net)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	raw := append([]byte{net.PubKeyHashAddrID}, addr.ScriptAddress()...)
	return Address{raw: raw, encoded: addr.EncodeAddress()}, nil
}

// Bytes returns the canonical 21 byte encoding.
func (a Address) Bytes() []byte {
	return a.raw
}

func (a Address) String() string {
	return a.encoded
}

// IsZero returns whether the address is unset.
func (a Address) IsZero() bool {
	return len(a.raw) <= 0
}

// Equal compares two addresses by their canonical bytes.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.raw, other.raw)
}
