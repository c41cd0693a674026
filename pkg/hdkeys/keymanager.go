package hdkeys

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"github.com/walletkit/walletd/pkg/keycipher"
	"github.com/walletkit/walletd/pkg/securestore"
)

const (
	// Bip44Purpose is the purpose' level of the derivation scheme
	Bip44Purpose = 44
	// Bip44CoinType is the coin type' level of the derivation scheme
	Bip44CoinType = 0

	// ExternalChain is the chain of receiving addresses
	ExternalChain uint32 = 0
	// InternalChain is the chain of change addresses
	InternalChain uint32 = 1
)

func accountPrivKeyID(accountIndex int) []byte {
	return []byte(fmt.Sprintf("hd/%d/xprv", accountIndex))
}

func accountPubKeyID(accountIndex int) []byte {
	return []byte(fmt.Sprintf("hd/%d/xpub", accountIndex))
}

// AccountKeyManager owns the key subtree of one BIP44 account
// (m/44'/0'/accountIndex'). The account extended private key lives
// encrypted in the secure store; the extended public key is kept in
// plaintext so addresses and public keys can be derived without the
// cipher, and so loading on startup never needs the master seed.
type AccountKeyManager struct {
	accountIndex int
	network      *chaincfg.Params
	store        securestore.SecureStorage
	accountPub   *hdkeychain.ExtendedKey
	id           uuid.UUID

	// pathByAddress maps every derived address back to its relative
	// chain/index pair so signing keys can be located by address.
	pathByAddress map[string]DerivationPath
}

// NewAccountKeyManager derives the subtree for the given account index from
// the root key, encrypts the account private key under the given cipher and
// persists both it and the plaintext public key. The same (seed, index) pair
// always reproduces the same keys.
func NewAccountKeyManager(
	root *hdkeychain.ExtendedKey,
	accountIndex int,
	net *chaincfg.Params,
	store securestore.SecureStorage,
	cipher keycipher.Cipher,
) (*AccountKeyManager, error) {
	if accountIndex < 0 {
		return nil, ErrInvalidAccountIndex
	}

	purpose, err := root.Derive(hdkeychain.HardenedKeyStart + Bip44Purpose)
	if err != nil {
		return nil, err
	}
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + Bip44CoinType)
	if err != nil {
		return nil, err
	}
	accountPriv, err := coinType.Derive(
		hdkeychain.HardenedKeyStart + uint32(accountIndex),
	)
	if err != nil {
		return nil, err
	}
	accountPub, err := accountPriv.Neuter()
	if err != nil {
		return nil, err
	}

	if err := store.Put(
		accountPrivKeyID(accountIndex), []byte(accountPriv.String()), cipher,
	); err != nil {
		return nil, err
	}
	if err := store.PutPlaintext(
		accountPubKeyID(accountIndex), []byte(accountPub.String()),
	); err != nil {
		return nil, err
	}

	return newManager(accountIndex, net, store, accountPub)
}

// LoadAccountKeyManager rebuilds a key manager from the plaintext public key
// material persisted by NewAccountKeyManager. No cipher is needed.
func LoadAccountKeyManager(
	accountIndex int,
	net *chaincfg.Params,
	store securestore.SecureStorage,
) (*AccountKeyManager, error) {
	if accountIndex < 0 {
		return nil, ErrInvalidAccountIndex
	}

	rawPub, err := store.GetPlaintext(accountPubKeyID(accountIndex))
	if err != nil {
		return nil, ErrAccountKeysNotFound
	}
	accountPub, err := hdkeychain.NewKeyFromString(string(rawPub))
	if err != nil {
		return nil, err
	}
	return newManager(accountIndex, net, store, accountPub)
}

func newManager(
	accountIndex int,
	net *chaincfg.Params,
	store securestore.SecureStorage,
	accountPub *hdkeychain.ExtendedKey,
) (*AccountKeyManager, error) {
	pubKey, err := accountPub.ECPubKey()
	if err != nil {
		return nil, err
	}
	id, err := uuid.FromBytes(btcutil.Hash160(pubKey.SerializeCompressed())[:16])
	if err != nil {
		return nil, err
	}

	return &AccountKeyManager{
		accountIndex:  accountIndex,
		network:       net,
		store:         store,
		accountPub:    accountPub,
		id:            id,
		pathByAddress: map[string]DerivationPath{},
	}, nil
}

// ID is the stable identifier of the account, derived from its public key
// material. It never changes once the account has been created.
func (m *AccountKeyManager) ID() uuid.UUID {
	return m.id
}

// AccountIndex returns the BIP44 account index of the subtree.
func (m *AccountKeyManager) AccountIndex() int {
	return m.accountIndex
}

// PublicKey derives the public key at chain/index below the account node.
func (m *AccountKeyManager) PublicKey(chain, index uint32) (*btcec.PublicKey, error) {
	return m.PublicKeyForPath(DerivationPath{chain, index})
}

// PublicKeyForPath derives the public key at the given path relative to the
// account node. Only non-hardened steps are possible since derivation starts
// from the neutered account key.
func (m *AccountKeyManager) PublicKeyForPath(path DerivationPath) (*btcec.PublicKey, error) {
	if len(path) <= 0 {
		return nil, ErrNullDerivationPath
	}
	node := m.accountPub
	var err error
	for _, step := range path {
		if node, err = node.Derive(step); err != nil {
			return nil, err
		}
	}
	return node.ECPubKey()
}

// Address derives the P2PKH address at chain/index and remembers its
// derivation path for later signing key lookups.
func (m *AccountKeyManager) Address(chain, index uint32) (btcutil.Address, error) {
	pubKey, err := m.PublicKey(chain, index)
	if err != nil {
		return nil, err
	}
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pubKey.SerializeCompressed()), m.network,
	)
	if err != nil {
		return nil, err
	}
	m.pathByAddress[addr.EncodeAddress()] = DerivationPath{chain, index}
	return addr, nil
}

// HasAddress returns whether the given address has been derived by this
// key manager.
func (m *AccountKeyManager) HasAddress(address string) bool {
	_, ok := m.pathByAddress[address]
	return ok
}

// DerivedAddresses returns every address derived so far.
func (m *AccountKeyManager) DerivedAddresses() []string {
	addresses := make([]string, 0, len(m.pathByAddress))
	for addr := range m.pathByAddress {
		addresses = append(addresses, addr)
	}
	return addresses
}

// SigningKeyFor decrypts the account private key under the given cipher and
// derives the signing key of a previously derived address. It fails with
// keycipher.ErrInvalidCipher if the cipher cannot decrypt the account key.
func (m *AccountKeyManager) SigningKeyFor(
	address string, cipher keycipher.Cipher,
) (*btcec.PrivateKey, error) {
	path, ok := m.pathByAddress[address]
	if !ok {
		return nil, ErrUnknownAddress
	}

	rawPriv, err := m.store.Get(accountPrivKeyID(m.accountIndex), cipher)
	if err != nil {
		return nil, err
	}
	node, err := hdkeychain.NewKeyFromString(string(rawPriv))
	if err != nil {
		return nil, err
	}
	for _, step := range path {
		if node, err = node.Derive(step); err != nil {
			return nil, err
		}
	}
	return node.ECPrivKey()
}
