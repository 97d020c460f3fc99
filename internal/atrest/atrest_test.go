package atrest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	keys := NewKeyring([]byte("test-master-key"))
	key, err := keys.DataKey(LabelFileStorage)
	require.NoError(t, err)
	require.Len(t, key, 32)
	return key
}

func TestKeyring_Disabled(t *testing.T) {
	keys := NewKeyring(nil)

	assert.False(t, keys.Enabled())

	key, err := keys.DataKey(LabelFileStorage)
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestKeyring_DerivationIsScopedAndCached(t *testing.T) {
	keys := NewKeyring([]byte("master"))

	fileKey, err := keys.DataKey(LabelFileStorage)
	require.NoError(t, err)
	dbKey, err := keys.DataKey(LabelDBSensitive)
	require.NoError(t, err)

	assert.NotEqual(t, fileKey, dbKey)

	again, err := keys.DataKey(LabelFileStorage)
	require.NoError(t, err)
	assert.Equal(t, fileKey, again)

	// Same master key in a fresh process derives the same keys.
	other, err := NewKeyring([]byte("master")).DataKey(LabelFileStorage)
	require.NoError(t, err)
	assert.Equal(t, fileKey, other)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := testKey(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "regular", plaintext: []byte("blob contents")},
		{name: "empty", plaintext: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := Seal(key, tt.plaintext)
			require.NoError(t, err)
			require.Len(t, envelope, nonceSize+tagSize+len(tt.plaintext))

			got, err := Open(key, envelope)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestSealOpen_NilKeyIsIdentity(t *testing.T) {
	value := []byte("stays as is")

	sealed, err := Seal(nil, value)
	require.NoError(t, err)
	assert.Equal(t, value, sealed)

	opened, err := Open(nil, value)
	require.NoError(t, err)
	assert.Equal(t, value, opened)
}

func TestOpen_Malformed(t *testing.T) {
	key := testKey(t)

	_, err := Open(key, []byte("short"))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	envelope, err := Seal(key, []byte("data"))
	require.NoError(t, err)
	envelope[len(envelope)-1] ^= 0xff
	_, err = Open(key, envelope)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestSealOpenColumn_RoundTrip(t *testing.T) {
	key := testKey(t)

	value := []byte("wrapped key bytes")
	sealed, err := SealColumn(key, value)
	require.NoError(t, err)
	require.Equal(t, byte(columnVersion), sealed[0])

	got, err := OpenColumn(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestOpenColumn_LegacyPlaintextPassesThrough(t *testing.T) {
	key := testKey(t)

	// A pre-migration row has no version byte and must come back as is.
	legacy := []byte{0x02, 0x03, 0x04}
	got, err := OpenColumn(key, legacy)
	require.NoError(t, err)
	assert.Equal(t, legacy, got)

	empty, err := OpenColumn(key, []byte{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSealOpenColumn_NilKeyIsIdentity(t *testing.T) {
	value := []byte("plain")

	sealed, err := SealColumn(nil, value)
	require.NoError(t, err)
	assert.Equal(t, value, sealed)

	opened, err := OpenColumn(nil, value)
	require.NoError(t, err)
	assert.Equal(t, value, opened)
}
