package record

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// CurrentVersion is the serialization version emitted by Serialize.
const CurrentVersion = 2

const (
	v1FieldCount = 5
	v2FieldCount = 9
)

// Serialize encodes the record in the current versioned format:
//
//	version|timestamp|addressString|addressBytesHex|privateKeyHex|publicKeyHex|source|tag|backupState
func (r *Record) Serialize() string {
	privKeyHex := ""
	pubKeyHex := ""
	if r.HasPrivateKey() {
		privKeyHex = hex.EncodeToString(r.KeyBytes)
		pubKeyHex = hex.EncodeToString(r.PublicKeyBytes)
	}

	fields := []string{
		strconv.Itoa(CurrentVersion),
		strconv.FormatInt(r.Timestamp, 10),
		r.Address.String(),
		hex.EncodeToString(r.Address.Bytes()),
		privKeyHex,
		pubKeyHex,
		strconv.Itoa(int(r.Source)),
		strconv.Itoa(int(r.Tag)),
		strconv.Itoa(int(r.BackupState)),
	}
	return strings.Join(fields, "|")
}

// FromSerializedString parses a record in any known serialization format.
// The legacy version-less format is recognized by its field count alone and
// upgraded by defaulting the fields it lacks. Unknown version numbers are a
// distinct error from malformed payloads of a known version.
func FromSerializedString(serialized string) (*Record, error) {
	entries := strings.Split(serialized, "|")
	if len(entries) < v1FieldCount {
		return nil, fmt.Errorf("%w: too few fields", ErrMalformedRecord)
	}
	// Version 1 records have exactly 5 entries and no version tag.
	if len(entries) == v1FieldCount {
		return parseV1(entries)
	}

	version, err := strconv.Atoi(entries[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad version tag %q", ErrMalformedRecord, entries[0])
	}
	switch version {
	case 2:
		return parseV2(entries)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRecordVersion, version)
	}
}

func parseV1(entries []string) (*Record, error) {
	timestamp, err := parseTimestamp(entries[0])
	if err != nil {
		return nil, err
	}
	addr, err := parseAddress(entries[1], entries[2])
	if err != nil {
		return nil, err
	}
	keyBytes, pubKeyBytes, err := parseKeyPair(entries[3], entries[4])
	if err != nil {
		return nil, err
	}

	// Upgrade to the current version by defaulting the missing fields.
	return &Record{
		KeyBytes:       keyBytes,
		PublicKeyBytes: pubKeyBytes,
		Address:        addr,
		Timestamp:      timestamp,
		Source:         SourceVersion1,
		Tag:            TagActive,
		BackupState:    BackupStateUnknown,
	}, nil
}

func parseV2(entries []string) (*Record, error) {
	if len(entries) != v2FieldCount {
		return nil, fmt.Errorf(
			"%w: version 2 record has %d fields instead of %d",
			ErrMalformedRecord, len(entries), v2FieldCount,
		)
	}

	timestamp, err := parseTimestamp(entries[1])
	if err != nil {
		return nil, err
	}
	addr, err := parseAddress(entries[2], entries[3])
	if err != nil {
		return nil, err
	}
	keyBytes, pubKeyBytes, err := parseKeyPair(entries[4], entries[5])
	if err != nil {
		return nil, err
	}
	source, err := parseEnumCode(entries[6])
	if err != nil {
		return nil, err
	}
	tag, err := parseEnumCode(entries[7])
	if err != nil {
		return nil, err
	}
	backupState, err := parseEnumCode(entries[8])
	if err != nil {
		return nil, err
	}

	return &Record{
		KeyBytes:       keyBytes,
		PublicKeyBytes: pubKeyBytes,
		Address:        addr,
		Timestamp:      timestamp,
		Source:         SourceFromInt(source),
		Tag:            TagFromInt(tag),
		BackupState:    BackupStateFromInt(backupState),
	}, nil
}

func parseTimestamp(field string) (int64, error) {
	if len(field) == 0 {
		return 0, fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}
	timestamp, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformedRecord, field)
	}
	return timestamp, nil
}

func parseAddress(encoded, bytesHex string) (Address, error) {
	if len(encoded) == 0 || len(bytesHex) == 0 {
		return Address{}, fmt.Errorf("%w: empty address", ErrMalformedRecord)
	}
	raw, err := hex.DecodeString(bytesHex)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad address hex", ErrMalformedRecord)
	}
	addr, err := NewAddress(raw, encoded)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return addr, nil
}

// parseKeyPair returns the decoded private/public key bytes, or nil for both
// when either field is empty, which marks a watch-only record.
func parseKeyPair(privHex, pubHex string) ([]byte, []byte, error) {
	if len(privHex) == 0 || len(pubHex) == 0 {
		return nil, nil, nil
	}
	keyBytes, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad private key hex", ErrMalformedRecord)
	}
	pubKeyBytes, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad public key hex", ErrMalformedRecord)
	}
	return keyBytes, pubKeyBytes, nil
}

func parseEnumCode(field string) (int, error) {
	code, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: bad enum code %q", ErrMalformedRecord, field)
	}
	return code, nil
}
