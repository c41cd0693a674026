package record

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

// BackupState tells what is known about the backup state of the private key.
// Currently the only supported value is unknown.
type BackupState int

const (
	// BackupStateUnknown ...
	BackupStateUnknown BackupState = 0
)

// BackupStateFromInt maps a persisted integer code to a BackupState.
func BackupStateFromInt(code int) BackupState {
	return BackupStateUnknown
}

// Tag identifies which set a record belongs to.
type Tag int

const (
	// TagUnknown ...
	TagUnknown Tag = 0
	// TagActive ...
	TagActive Tag = 1
	// TagArchive ...
	TagArchive Tag = 2
)

// TagFromInt maps a persisted integer code to a Tag.
func TagFromInt(code int) Tag {
	switch code {
	case 1:
		return TagActive
	case 2:
		return TagArchive
	default:
		return TagUnknown
	}
}

// Source is the provenance of a record.
type Source int

const (
	// SourceUnknown ...
	SourceUnknown Source = 0
	// SourceVersion1 marks records upgraded from the version-less legacy
	// serialization format.
	SourceVersion1 Source = 1
	// SourceCreatedPrivateKey ...
	SourceCreatedPrivateKey Source = 2
	// SourceImportedAddress ...
	SourceImportedAddress Source = 3
	// SourceImportedWif ...
	SourceImportedWif Source = 4
	// SourceImportedMiniKey ...
	SourceImportedMiniKey Source = 5
	// SourceImportedSeed ...
	SourceImportedSeed Source = 6
	// SourceImportedBackup marks keys restored from an external backup URI.
	SourceImportedBackup Source = 7
)

// SourceFromInt maps a persisted integer code to a Source.
func SourceFromInt(code int) Source {
	if code < int(SourceUnknown) || code > int(SourceImportedBackup) {
		return SourceUnknown
	}
	return Source(code)
}

// Record is a legacy standalone wallet entry: a private key and/or address
// plus metadata. A record without a private key is watch-only, and that
// state is irreversible since ForgetPrivateKey drops the key material for
// good.
type Record struct {
	// KeyBytes is the raw private key, nil for watch-only records.
	KeyBytes []byte
	// PublicKeyBytes is the serialized public key matching KeyBytes.
	PublicKeyBytes []byte
	Address        Address
	// Timestamp is the creation time in milliseconds since the epoch.
	Timestamp   int64
	Source      Source
	Tag         Tag
	BackupState BackupState
}

// NewRecordFromAddress returns a watch-only record for the given address.
func NewRecordFromAddress(addr Address) *Record {
	return &Record{
		Address:     addr,
		Timestamp:   nowMillis(),
		Source:      SourceImportedAddress,
		Tag:         TagActive,
		BackupState: BackupStateUnknown,
	}
}

// NewRecordFromPrivateKey returns a record holding the given private key.
func NewRecordFromPrivateKey(
	privKey *btcec.PrivateKey, compressed bool, source Source,
	net *chaincfg.Params,
) (*Record, error) {
	pubKeyBytes := serializePublicKey(privKey.PubKey(), compressed)
	addr, err := AddressFromPublicKey(pubKeyBytes, net)
	if err != nil {
		return nil, err
	}
	return &Record{
		KeyBytes:       privKey.Serialize(),
		PublicKeyBytes: pubKeyBytes,
		Address:        addr,
		Timestamp:      nowMillis(),
		Source:         source,
		Tag:            TagActive,
		BackupState:    BackupStateUnknown,
	}, nil
}

// RecordFromPassphraseSeed derives a record from a free-form passphrase
// using the brainwallet scheme: the private key is the SHA-256 digest of the
// passphrase bytes.
func RecordFromPassphraseSeed(
	seed string, compressed bool, net *chaincfg.Params,
) (*Record, error) {
	digest := sha256.Sum256([]byte(seed))
	privKey, _ := btcec.PrivKeyFromBytes(digest[:])
	return NewRecordFromPrivateKey(privKey, compressed, SourceImportedSeed, net)
}

// CreateRandomRecord returns a record with a freshly generated private key
// read from the given entropy source.
func CreateRandomRecord(rnd io.Reader, net *chaincfg.Params) (*Record, error) {
	entropy := make([]byte, 32)
	if _, err := io.ReadFull(rnd, entropy); err != nil {
		return nil, err
	}
	privKey, _ := btcec.PrivKeyFromBytes(entropy)
	return NewRecordFromPrivateKey(privKey, true, SourceCreatedPrivateKey, net)
}

// HasPrivateKey returns whether the record can spend.
func (r *Record) HasPrivateKey() bool {
	return len(r.KeyBytes) > 0
}

// PrivateKey returns the private key of a spendable record.
func (r *Record) PrivateKey() (*btcec.PrivateKey, error) {
	if !r.HasPrivateKey() {
		return nil, ErrWatchOnlyRecord
	}
	privKey, _ := btcec.PrivKeyFromBytes(r.KeyBytes)
	return privKey, nil
}

// ForgetPrivateKey irreversibly turns the record into a watch-only one. The
// address is preserved; there is no way to restore the key afterwards.
func (r *Record) ForgetPrivateKey() {
	for i := range r.KeyBytes {
		r.KeyBytes[i] = 0
	}
	r.KeyBytes = nil
	r.PublicKeyBytes = nil
}

// Copy returns a field-wise copy of the record.
func (r *Record) Copy() *Record {
	copied := *r
	if r.KeyBytes != nil {
		copied.KeyBytes = append([]byte(nil), r.KeyBytes...)
	}
	if r.PublicKeyBytes != nil {
		copied.PublicKeyBytes = append([]byte(nil), r.PublicKeyBytes...)
	}
	return &copied
}

// Equal compares records by address only: two records with the same address
// are the same record regardless of their other fields.
func (r *Record) Equal(other *Record) bool {
	return r.Address.Equal(other.Address)
}

// Less orders records so that spendable keys surface first in any list:
// records with a private key sort before watch-only ones, ties are broken by
// ascending timestamp, then by lexicographic address string.
func (r *Record) Less(other *Record) bool {
	if r.HasPrivateKey() != other.HasPrivateKey() {
		return r.HasPrivateKey()
	}
	if r.Timestamp != other.Timestamp {
		return r.Timestamp < other.Timestamp
	}
	return r.Address.String() < other.Address.String()
}

func (r *Record) String() string {
	return r.Address.String()
}

func serializePublicKey(pubKey *btcec.PublicKey, compressed bool) []byte {
	if compressed {
		return pubKey.SerializeCompressed()
	}
	return pubKey.SerializeUncompressed()
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
