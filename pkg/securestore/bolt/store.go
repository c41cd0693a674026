package boltsecurestore

import (
	"os"
	"path"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/walletkit/walletd/pkg/keycipher"
	"github.com/walletkit/walletd/pkg/securestore"
)

var (
	// ciphertextBucketName is the bucket holding encrypted values.
	ciphertextBucketName = []byte("ciphertext")
	// plaintextBucketName is the bucket holding unencrypted values.
	plaintextBucketName = []byte("plaintext")
)

const dbTimeout = 60 * time.Second

type boltSecureStorage struct {
	db *bolt.DB
}

// NewSecureStorage creates a bolt instance of the SecureStorage interface
// backed by a file in the given datadir.
func NewSecureStorage(datadir, filename string) (securestore.SecureStorage, error) {
	if _, err := os.Stat(datadir); os.IsNotExist(err) {
		os.Mkdir(datadir, os.ModeDir|0755)
	}

	db, err := bolt.Open(
		path.Join(datadir, filename), 0600, &bolt.Options{Timeout: dbTimeout},
	)
	if err != nil {
		return nil, err
	}

	// If the store's buckets don't exist, create them.
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(ciphertextBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(plaintextBucketName)
		return err
	}); err != nil {
		return nil, err
	}

	return &boltSecureStorage{db: db}, nil
}

func (s *boltSecureStorage) Has(id []byte) bool {
	if len(id) <= 0 {
		return false
	}
	var found bool
	s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(ciphertextBucketName).Get(id) != nil
		return nil
	})
	return found
}

func (s *boltSecureStorage) Get(id []byte, cipher keycipher.Cipher) ([]byte, error) {
	if len(id) <= 0 {
		return nil, ErrMissingDataKey
	}
	if cipher == nil {
		return nil, ErrNullCipher
	}

	var ciphertext []byte
	s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(ciphertextBucketName).Get(id); value != nil {
			ciphertext = make([]byte, len(value))
			copy(ciphertext, value)
		}
		return nil
	})
	// An absent id is indistinguishable from a wrong cipher for callers:
	// both mean the secret cannot be revealed.
	if ciphertext == nil {
		return nil, keycipher.ErrInvalidCipher
	}

	return cipher.Decrypt(ciphertext)
}

func (s *boltSecureStorage) Put(id, plaintext []byte, cipher keycipher.Cipher) error {
	if len(id) <= 0 {
		return ErrMissingDataKey
	}
	if cipher == nil {
		return ErrNullCipher
	}

	ciphertext, err := cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ciphertextBucketName).Put(id, ciphertext)
	})
}

func (s *boltSecureStorage) Delete(id []byte) error {
	if len(id) <= 0 {
		return ErrMissingDataKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ciphertextBucketName).Delete(id)
	})
}

func (s *boltSecureStorage) GetPlaintext(id []byte) ([]byte, error) {
	if len(id) <= 0 {
		return nil, ErrMissingDataKey
	}
	var value []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(plaintextBucketName).Get(id); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if value == nil {
		return nil, ErrDataNotFound
	}
	return value, nil
}

func (s *boltSecureStorage) PutPlaintext(id, value []byte) error {
	if len(id) <= 0 {
		return ErrMissingDataKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(plaintextBucketName).Put(id, value)
	})
}

func (s *boltSecureStorage) DeletePlaintext(id []byte) error {
	if len(id) <= 0 {
		return ErrMissingDataKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(plaintextBucketName).Delete(id)
	})
}

func (s *boltSecureStorage) Close() error {
	return s.db.Close()
}
