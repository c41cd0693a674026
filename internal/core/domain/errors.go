package domain

import "errors"

var (
	// ErrAccountNotFound is returned when looking up an account id the
	// registry does not know. Reaching it through normal UI flow indicates a
	// logic bug in the caller.
	ErrAccountNotFound = errors.New("account not found")
	// ErrMasterSeedAlreadyConfigured is returned when trying to configure a
	// second master seed. A wallet's seed is permanent once set.
	ErrMasterSeedAlreadyConfigured = errors.New("master seed already configured")
	// ErrNoMasterSeed is returned when an HD operation requires a master
	// seed and none has been configured.
	ErrNoMasterSeed = errors.New("no master seed configured")
	// ErrAccountCreationNotAllowed is returned when the contiguity policy
	// forbids creating the next HD account: index n+1 is only creatable once
	// account n exists and has had activity.
	ErrAccountCreationNotAllowed = errors.New("unable to create additional HD account")
	// ErrMalformedMasterSeed is returned when the decrypted master seed blob
	// does not look like a seed.
	ErrMalformedMasterSeed = errors.New("malformed master seed")
)
