package hdkeys

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vulpemventures/go-bip39"
)

// MasterSeed is the root secret of all hierarchical key derivation. It is
// configured once per wallet and only ever stored in encrypted form.
type MasterSeed []byte

// NewMnemonicOpts is the struct given to the NewMnemonic method
type NewMnemonicOpts struct {
	EntropySize int
}

func (o NewMnemonicOpts) validate() error {
	if o.EntropySize > 0 {
		if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	if o.EntropySize < 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewMnemonic returns a new BIP39 mnemonic as a list of words
func NewMnemonic(opts NewMnemonicOpts) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	entropy, err := bip39.NewEntropy(opts.EntropySize)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

// MasterSeedFromMnemonic validates the mnemonic and derives the master seed
// from it, stretched with the optional BIP39 passphrase.
func MasterSeedFromMnemonic(mnemonic []string, passphrase string) (MasterSeed, error) {
	if len(mnemonic) <= 0 {
		return nil, ErrNullMnemonic
	}
	strMnemonic := strings.Join(mnemonic, " ")
	if !bip39.IsMnemonicValid(strMnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return MasterSeed(bip39.NewSeed(strMnemonic, passphrase)), nil
}

// MasterKeyFromSeed returns the BIP32 root key node of the given seed. The
// same seed always reproduces the same root, which is what makes account
// re-derivation on startup possible without re-persisting key material.
func MasterKeyFromSeed(seed MasterSeed, net *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	if len(seed) <= 0 {
		return nil, ErrNullMasterSeed
	}
	return hdkeychain.NewMaster(seed, net)
}
