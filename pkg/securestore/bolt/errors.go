package boltsecurestore

import "fmt"

var (
	// ErrDataNotFound specifies that no data has been found for a given key.
	ErrDataNotFound = fmt.Errorf("data not found")
	// ErrMissingDataKey specifies that a data key is required to perform the
	// requested operation.
	ErrMissingDataKey = fmt.Errorf("missing data key")
	// ErrNullCipher specifies that a cipher is required to read or write
	// encrypted values.
	ErrNullCipher = fmt.Errorf("cipher must not be null")
)
