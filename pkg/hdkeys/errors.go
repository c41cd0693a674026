package hdkeys

import "errors"

var (
	// ErrNullMasterSeed ...
	ErrNullMasterSeed = errors.New("master seed is null")
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic is null")
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidAccountIndex ...
	ErrInvalidAccountIndex = errors.New("account index must not be negative")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and " +
			"can optionally start with 'm/' for absolute paths",
	)
	// ErrUnknownAddress is returned when asking for the signing key of an
	// address that was never derived by the key manager.
	ErrUnknownAddress = errors.New("address does not belong to this account")
	// ErrAccountKeysNotFound is returned when loading a key manager whose
	// public key material is missing from the secure store.
	ErrAccountKeysNotFound = errors.New("account key material not found in store")
)
