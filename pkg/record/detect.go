package record

import (
	"crypto/sha256"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// backupURIPrefix is the scheme of keys exported by the legacy external
// backup format.
const backupURIPrefix = "bitcoinspinner:"

// IsRecord reports whether the given free-form string can be interpreted as
// a record.
func IsRecord(input string, net *chaincfg.Params) bool {
	_, ok := FromString(input, net)
	return ok
}

// FromString tries to interpret free-form pasted input as a record. The
// detectors run in fixed priority order and the first match wins: plain
// address, base58 WIF private key, mini private key, external backup URI.
func FromString(input string, net *chaincfg.Params) (*Record, bool) {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return nil, false
	}

	if r := recordFromAddressString(input, net); r != nil {
		return r, true
	}
	if r := recordFromWif(input, net); r != nil {
		return r, true
	}
	if r := recordFromMiniKey(input, net); r != nil {
		return r, true
	}
	if r := recordFromBackupURI(input, net); r != nil {
		return r, true
	}
	return nil, false
}

func recordFromAddressString(input string, net *chaincfg.Params) *Record {
	addr, err := AddressFromBase58(input, net)
	if err != nil {
		return nil
	}
	return NewRecordFromAddress(addr)
}

func recordFromWif(input string, net *chaincfg.Params) *Record {
	wif, err := btcutil.DecodeWIF(input)
	if err != nil || !wif.IsForNet(net) {
		return nil
	}
	r, err := NewRecordFromPrivateKey(
		wif.PrivKey, wif.CompressPubKey, SourceImportedWif, net,
	)
	if err != nil {
		return nil
	}
	return r
}

// recordFromMiniKey detects mini private keys in the format proposed by
// Casascius: the string starts with 'S' and appending '?' must make the
// first byte of its SHA-256 digest zero. The key itself is the SHA-256 of
// the original string.
func recordFromMiniKey(input string, net *chaincfg.Params) *Record {
	if len(input) < 2 || !strings.HasPrefix(input, "S") {
		return nil
	}
	check := sha256.Sum256([]byte(input + "?"))
	if check[0] != 0x00 {
		return nil
	}

	digest := sha256.Sum256([]byte(input))
	privKey, _ := btcec.PrivKeyFromBytes(digest[:])
	r, err := NewRecordFromPrivateKey(privKey, false, SourceImportedMiniKey, net)
	if err != nil {
		return nil
	}
	return r
}

func recordFromBackupURI(input string, net *chaincfg.Params) *Record {
	if !strings.HasPrefix(input, backupURIPrefix) {
		return nil
	}
	wif, err := btcutil.DecodeWIF(strings.TrimPrefix(input, backupURIPrefix))
	if err != nil || !wif.IsForNet(net) {
		return nil
	}
	r, err := NewRecordFromPrivateKey(
		wif.PrivKey, wif.CompressPubKey, SourceImportedBackup, net,
	)
	if err != nil {
		return nil
	}
	return r
}
