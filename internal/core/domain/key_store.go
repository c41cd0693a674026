package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/walletkit/walletd/pkg/keycipher"
	"github.com/walletkit/walletd/pkg/securestore"
)

func privKeyID(address string) []byte {
	return []byte(fmt.Sprintf("sa/%s/prv", address))
}

func pubKeyID(address string) []byte {
	return []byte(fmt.Sprintf("sa/%s/pub", address))
}

// PublicPrivateKeyStore holds the key material of single-address accounts in
// the secure store: private keys encrypted, public keys in plaintext.
type PublicPrivateKeyStore struct {
	store securestore.SecureStorage
}

// NewPublicPrivateKeyStore returns a key store on top of the given secure
// storage.
func NewPublicPrivateKeyStore(store securestore.SecureStorage) *PublicPrivateKeyStore {
	return &PublicPrivateKeyStore{store: store}
}

// SetPrivateKey encrypts and stores the private key of an address together
// with its plaintext public key.
func (s *PublicPrivateKeyStore) SetPrivateKey(
	address string, privKey *btcec.PrivateKey, compressed bool,
	cipher keycipher.Cipher,
) error {
	if err := s.store.Put(privKeyID(address), privKey.Serialize(), cipher); err != nil {
		return err
	}
	pubKey := privKey.PubKey()
	pubKeyBytes := pubKey.SerializeCompressed()
	if !compressed {
		pubKeyBytes = pubKey.SerializeUncompressed()
	}
	return s.store.PutPlaintext(pubKeyID(address), pubKeyBytes)
}

// HasPrivateKey returns whether a private key is stored for the address.
func (s *PublicPrivateKeyStore) HasPrivateKey(address string) bool {
	return s.store.Has(privKeyID(address))
}

// PrivateKey decrypts and returns the private key of an address. It fails
// with keycipher.ErrInvalidCipher on a wrong cipher or an absent key.
func (s *PublicPrivateKeyStore) PrivateKey(
	address string, cipher keycipher.Cipher,
) (*btcec.PrivateKey, error) {
	keyBytes, err := s.store.Get(privKeyID(address), cipher)
	if err != nil {
		return nil, err
	}
	privKey, _ := btcec.PrivKeyFromBytes(keyBytes)
	return privKey, nil
}

// PublicKey returns the plaintext public key of an address.
func (s *PublicPrivateKeyStore) PublicKey(address string) ([]byte, error) {
	return s.store.GetPlaintext(pubKeyID(address))
}

// ForgetPrivateKey irreversibly removes the key material of an address. The
// cipher must be able to decrypt the stored key, so a wrong cipher fails
// with keycipher.ErrInvalidCipher before anything is deleted.
func (s *PublicPrivateKeyStore) ForgetPrivateKey(
	address string, cipher keycipher.Cipher,
) error {
	if s.HasPrivateKey(address) {
		if _, err := s.store.Get(privKeyID(address), cipher); err != nil {
			return err
		}
	}
	if err := s.store.Delete(privKeyID(address)); err != nil {
		return err
	}
	return s.store.DeletePlaintext(pubKeyID(address))
}
