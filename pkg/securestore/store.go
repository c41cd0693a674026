package securestore

import "github.com/walletkit/walletd/pkg/keycipher"

// SecureStorage is a persistent key/value blob store that keeps secret
// values encrypted at rest. Public material (extended public keys, public
// keys of imported addresses) is stored in a separate plaintext namespace
// so it can be read back without prompting for credentials.
type SecureStorage interface {
	// Has returns whether a ciphertext value is stored for the given id.
	Has(id []byte) bool
	// Get decrypts and returns the value stored for the given id. It fails
	// with keycipher.ErrInvalidCipher if the id is absent or the cipher
	// cannot decrypt the stored ciphertext.
	Get(id []byte, cipher keycipher.Cipher) ([]byte, error)
	// Put encrypts the plaintext under the given cipher and persists it.
	Put(id, plaintext []byte, cipher keycipher.Cipher) error
	// Delete removes the ciphertext value stored for the given id, if any.
	Delete(id []byte) error
	// GetPlaintext returns an unencrypted value.
	GetPlaintext(id []byte) ([]byte, error)
	// PutPlaintext persists an unencrypted value.
	PutPlaintext(id, value []byte) error
	// DeletePlaintext removes an unencrypted value, if any.
	DeletePlaintext(id []byte) error
	// Close closes the connection to the underlying DB.
	Close() error
}
