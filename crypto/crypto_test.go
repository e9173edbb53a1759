package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := CreateKeyPair()
	require.NoError(t, err)

	message := []byte("a transaction digest")
	sig, err := Sign(message, kp.Private)
	require.NoError(t, err)

	addr := GetAddress(kp.Public)
	require.True(t, Verify(message, sig, addr))

	other, err := CreateKeyPair()
	require.NoError(t, err)
	require.False(t, Verify(message, sig, GetAddress(other.Public)))
}

func TestRecoverPublicKey(t *testing.T) {
	kp, err := CreateKeyPair()
	require.NoError(t, err)

	message := []byte("claim this output")
	sig, err := Sign(message, kp.Private)
	require.NoError(t, err)

	recovered, err := RecoverPublicKey(message, sig)
	require.NoError(t, err)
	require.Equal(t, GetAddress(kp.Public), GetAddress(recovered))
}

func TestKeyPairFromPrivate(t *testing.T) {
	kp, err := CreateKeyPair()
	require.NoError(t, err)

	reconstructed, err := KeyPairFromPrivate(kp.Private.Serialize())
	require.NoError(t, err)
	require.Equal(t, GetAddress(kp.Public), GetAddress(reconstructed.Public))

	_, err = KeyPairFromPrivate([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestAddressFromBytesIsDeterministic(t *testing.T) {
	data := []byte("deploying tx hash")
	require.Equal(t, AddressFromBytes(data), AddressFromBytes(data))
	require.NotEqual(t, AddressFromBytes(data), AddressFromBytes([]byte("other")))
}
