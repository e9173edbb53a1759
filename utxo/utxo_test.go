package utxo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davincci9412/Cil-core/bc"
)

func seedUTXO() *UTXO {
	var txHash bc.Hash
	txHash[0] = 0xAA
	var addr bc.Address
	addr[0] = 0x01
	return New(txHash, map[bc.OutputIndex]bc.Coins{
		0:  {Amount: 100000, Receiver: addr},
		12: {Amount: 100000, Receiver: addr},
		80: {Amount: 100000, Receiver: addr},
	})
}

func TestCoinsAtIndex(t *testing.T) {
	u := seedUTXO()
	coins, err := u.CoinsAtIndex(12)
	require.NoError(t, err)
	require.Equal(t, uint64(100000), coins.Amount)

	_, err = u.CoinsAtIndex(17)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSpendCoins(t *testing.T) {
	u := seedUTXO()
	require.NoError(t, u.SpendCoins(12))
	require.True(t, u.IsTombstoned(12))

	_, err := u.CoinsAtIndex(12)
	require.ErrorIs(t, err, ErrAlreadySpent)

	err = u.SpendCoins(12)
	require.ErrorIs(t, err, ErrAlreadyDeleted)

	err = u.SpendCoins(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIsEmpty(t *testing.T) {
	u := seedUTXO()
	require.False(t, u.IsEmpty())
	for _, i := range u.LiveIndices() {
		require.NoError(t, u.SpendCoins(i))
	}
	require.True(t, u.IsEmpty())
	require.Equal(t, 3, u.TombstoneCount())
}

func TestClone(t *testing.T) {
	u := seedUTXO()
	c := u.Clone()
	require.NoError(t, c.SpendCoins(12))

	// the original is untouched by mutating the clone
	coins, err := u.CoinsAtIndex(12)
	require.NoError(t, err)
	require.Equal(t, uint64(100000), coins.Amount)
}

func TestCreateCoins(t *testing.T) {
	var txHash bc.Hash
	u := Empty(txHash)
	require.True(t, u.IsEmpty())

	var addr bc.Address
	require.NoError(t, u.CreateCoins(0, bc.Coins{Amount: 1000, Receiver: addr}))
	require.False(t, u.IsEmpty())
	require.Error(t, u.CreateCoins(0, bc.Coins{Amount: 1000, Receiver: addr}))
}
