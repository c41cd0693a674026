package record

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var net = &chaincfg.MainNetParams

// Well known test vectors.
const (
	eaterAddress = "1BitcoinEaterAddressDontSendf59kuE"
	// Uncompressed WIF from the "Wallet import format" wiki page.
	testWif = "5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1jvhTVqvbTLvyTJ"
	// Valid mini private key from the Casascius series documentation.
	testMiniKey = "S6c56bnXQiBjk9mqSYE7ykVQ7NzrRy"
)

func newSpendableRecord(t *testing.T) *Record {
	t.Helper()
	r, err := CreateRandomRecord(rand.Reader, net)
	require.NoError(t, err)
	return r
}

func TestSerializeParseRoundTrip(t *testing.T) {
	spendable := newSpendableRecord(t)

	watchOnly := newSpendableRecord(t)
	watchOnly.ForgetPrivateKey()

	for _, r := range []*Record{spendable, watchOnly} {
		parsed, err := FromSerializedString(r.Serialize())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
}

func TestParseLegacyV1(t *testing.T) {
	r := newSpendableRecord(t)
	serialized := fmt.Sprintf(
		"%d|%s|%s|%s|%s",
		r.Timestamp,
		r.Address.String(),
		hex.EncodeToString(r.Address.Bytes()),
		hex.EncodeToString(r.KeyBytes),
		hex.EncodeToString(r.PublicKeyBytes),
	)

	parsed, err := FromSerializedString(serialized)
	require.NoError(t, err)

	assert.Equal(t, SourceVersion1, parsed.Source)
	assert.Equal(t, TagActive, parsed.Tag)
	assert.Equal(t, BackupStateUnknown, parsed.BackupState)
	assert.Equal(t, r.KeyBytes, parsed.KeyBytes)
	assert.True(t, r.Address.Equal(parsed.Address))
}

func TestParseMalformed(t *testing.T) {
	valid := newSpendableRecord(t).Serialize()

	tests := []struct {
		desc       string
		serialized string
	}{
		{"empty string", ""},
		{"too few fields", "1|2|3"},
		{"eight fields instead of nine", valid[:len(valid)-2]},
		{"non-numeric timestamp", "2|notatime|a|b|||2|1|0"},
		{"bad address hex", "2|123|" + eaterAddress + "|zzzz|||2|1|0"},
		{"bad version tag", "x|123|a|b|||2|1|0"},
	}
	for _, tt := range tests {
		parsed, err := FromSerializedString(tt.serialized)
		assert.ErrorIs(t, err, ErrMalformedRecord, tt.desc)
		assert.Nil(t, parsed, tt.desc)
	}
}

func TestParseUnknownVersion(t *testing.T) {
	_, err := FromSerializedString("3|123|a|b|c|d|2|1|0")
	assert.ErrorIs(t, err, ErrUnknownRecordVersion)
	assert.NotErrorIs(t, err, ErrMalformedRecord)
}

func TestDetectAddress(t *testing.T) {
	r, ok := FromString(" "+eaterAddress+" ", net)
	require.True(t, ok)
	assert.Equal(t, eaterAddress, r.Address.String())
	assert.Equal(t, SourceImportedAddress, r.Source)
	assert.False(t, r.HasPrivateKey())
}

func TestDetectWif(t *testing.T) {
	r, ok := FromString(testWif, net)
	require.True(t, ok)
	assert.Equal(t, SourceImportedWif, r.Source)
	assert.True(t, r.HasPrivateKey())

	wif, err := btcutil.DecodeWIF(testWif)
	require.NoError(t, err)
	assert.Equal(t, wif.PrivKey.Serialize(), r.KeyBytes)
}

func TestDetectMiniKey(t *testing.T) {
	check := sha256.Sum256([]byte(testMiniKey + "?"))
	require.Equal(t, byte(0), check[0], "test vector must satisfy the checksum probe")

	r, ok := FromString(testMiniKey, net)
	require.True(t, ok)
	assert.Equal(t, SourceImportedMiniKey, r.Source)

	digest := sha256.Sum256([]byte(testMiniKey))
	assert.Equal(t, digest[:], r.KeyBytes)
}

func TestDetectMiniKeyBadChecksum(t *testing.T) {
	// Flipping the last character breaks the sha256(s+"?") probe.
	mutated := testMiniKey[:len(testMiniKey)-1] + "z"
	check := sha256.Sum256([]byte(mutated + "?"))
	require.NotEqual(t, byte(0), check[0])

	_, ok := FromString(mutated, net)
	assert.False(t, ok)
}

func TestDetectBackupURI(t *testing.T) {
	r, ok := FromString(backupURIPrefix+testWif, net)
	require.True(t, ok)
	assert.Equal(t, SourceImportedBackup, r.Source)
	assert.True(t, r.HasPrivateKey())
}

func TestDetectGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "not a record", "S", "Sx"} {
		_, ok := FromString(input, net)
		assert.False(t, ok, "input %q", input)
	}
}

func TestOrdering(t *testing.T) {
	spendable := newSpendableRecord(t)
	spendable.Timestamp = 500

	watchOnlyOld := newSpendableRecord(t)
	watchOnlyOld.ForgetPrivateKey()
	watchOnlyOld.Timestamp = 100

	watchOnlyNew := newSpendableRecord(t)
	watchOnlyNew.ForgetPrivateKey()
	watchOnlyNew.Timestamp = 200

	// A record with a private key sorts first regardless of timestamp.
	assert.True(t, spendable.Less(watchOnlyOld))
	assert.False(t, watchOnlyOld.Less(spendable))

	// Among watch-only records the earlier timestamp wins.
	assert.True(t, watchOnlyOld.Less(watchOnlyNew))

	// Equal timestamps fall back to the address string.
	watchOnlyNew.Timestamp = watchOnlyOld.Timestamp
	expected := watchOnlyOld.Address.String() < watchOnlyNew.Address.String()
	assert.Equal(t, expected, watchOnlyOld.Less(watchOnlyNew))
}

func TestEqualityIsAddressOnly(t *testing.T) {
	r := newSpendableRecord(t)
	other := r.Copy()
	other.Timestamp = r.Timestamp + 1000
	other.ForgetPrivateKey()

	assert.True(t, r.Equal(other))
	assert.False(t, r.Equal(newSpendableRecord(t)))
}

func TestForgetPrivateKeyIsIrreversible(t *testing.T) {
	r := newSpendableRecord(t)
	addr := r.Address.String()

	r.ForgetPrivateKey()

	assert.False(t, r.HasPrivateKey())
	assert.Equal(t, addr, r.Address.String())
	_, err := r.PrivateKey()
	assert.Equal(t, ErrWatchOnlyRecord, err)

	// A forgotten key stays forgotten across serialization.
	parsed, err := FromSerializedString(r.Serialize())
	require.NoError(t, err)
	assert.False(t, parsed.HasPrivateKey())
}

func TestRecordFromPassphraseSeed(t *testing.T) {
	first, err := RecordFromPassphraseSeed("correct horse battery staple", true, net)
	require.NoError(t, err)
	second, err := RecordFromPassphraseSeed("correct horse battery staple", true, net)
	require.NoError(t, err)

	assert.Equal(t, first.Address.String(), second.Address.String())
	assert.Equal(t, SourceImportedSeed, first.Source)
}
