package keycipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/scrypt"
)

var (
	// ErrInvalidCipher is returned whenever a cipher cannot decrypt a
	// ciphertext, either because the passphrase is wrong or because the
	// ciphertext is corrupted or missing. Decryption fails closed: a wrong
	// cipher never yields garbage plaintext.
	ErrInvalidCipher = errors.New("invalid key cipher")
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
)

const saltLen = 32

// Cipher wraps and unwraps secrets at rest. Implementations must be
// authenticated so that Decrypt fails loudly on any mismatch.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AesCipher is a passphrase-based Cipher using AES-GCM with a scrypt
// derived key. Every Encrypt call uses a fresh salt appended to the
// ciphertext so that the same plaintext never encrypts to the same bytes.
type AesCipher struct {
	passphrase []byte
}

// NewAesCipher returns an AesCipher for the given passphrase
func NewAesCipher(passphrase string) (*AesCipher, error) {
	if len(passphrase) <= 0 {
		return nil, ErrNullPassphrase
	}
	return &AesCipher{passphrase: []byte(passphrase)}, nil
}

// Encrypt seals the plaintext and returns nonce||ciphertext||salt
func (c *AesCipher) Encrypt(plaintext []byte) ([]byte, error) {
	key, salt, err := deriveKey(c.passphrase, nil)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	ciphertext = append(ciphertext, salt...)
	return ciphertext, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any failure, from a
// truncated payload to a failed authentication tag, is reported as
// ErrInvalidCipher.
func (c *AesCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) <= saltLen {
		return nil, ErrInvalidCipher
	}
	salt, data := ciphertext[len(ciphertext)-saltLen:], ciphertext[:len(ciphertext)-saltLen]

	key, _, err := deriveKey(c.passphrase, salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrInvalidCipher
	}
	nonce, text := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, text, nil)
	if err != nil {
		return nil, ErrInvalidCipher
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}

// deriveKey derives a 32 byte key from the passphrase. A nil salt generates
// a fresh random one.
func deriveKey(passphrase, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	key, err := scrypt.Key(passphrase, salt, 32768, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}
