package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/contract"
	"github.com/davincci9412/Cil-core/utxo"
)

func seedStorageUTXO() *utxo.UTXO {
	var txHash bc.Hash
	txHash[0] = 0xAA
	var addr bc.Address
	addr[0] = 0x01
	return utxo.New(txHash, map[bc.OutputIndex]bc.Coins{
		0:  {Amount: 100000, Receiver: addr},
		12: {Amount: 100000, Receiver: addr},
	})
}

func TestSpendCoinsLazyClonesOnFirstWrite(t *testing.T) {
	storageUTXO := seedStorageUTXO()
	p := New()

	var spendingTxHash bc.Hash
	spendingTxHash[0] = 0xBB

	require.Nil(t, p.GetUTXO(storageUTXO.TxHash))
	require.NoError(t, p.SpendCoins(storageUTXO, 12, spendingTxHash))
	require.NotNil(t, p.GetUTXO(storageUTXO.TxHash))

	// the storage copy passed in is untouched
	_, err := storageUTXO.CoinsAtIndex(12)
	require.NoError(t, err)

	got, ok := p.SpendingTxHash(storageUTXO.TxHash, 12)
	require.True(t, ok)
	require.Equal(t, spendingTxHash, got)
}

func TestCreateCoinsRejectsDuplicateIndex(t *testing.T) {
	p := New()
	var txHash bc.Hash
	var addr bc.Address
	require.NoError(t, p.CreateCoins(txHash, 0, bc.Coins{Amount: 1000, Receiver: addr}))
	require.Error(t, p.CreateCoins(txHash, 0, bc.Coins{Amount: 1000, Receiver: addr}))
}

func TestMergeWithEmptyIsIdentity(t *testing.T) {
	storageUTXO := seedStorageUTXO()
	p := New()
	var spendingTxHash bc.Hash
	spendingTxHash[0] = 0xBB
	require.NoError(t, p.SpendCoins(storageUTXO, 12, spendingTxHash))

	empty := New()
	merged, err := Merge(p, empty)
	require.NoError(t, err)
	require.True(t, merged.GetUTXO(storageUTXO.TxHash).IsTombstoned(12))
}

func TestMergeIsIdempotentOnSelf(t *testing.T) {
	storageUTXO := seedStorageUTXO()
	p := New()
	var spendingTxHash bc.Hash
	spendingTxHash[0] = 0xBB
	require.NoError(t, p.SpendCoins(storageUTXO, 12, spendingTxHash))
	require.NoError(t, p.AddReceipt(spendingTxHash, &bc.Receipt{Status: bc.TxStatusOK, CoinsUsed: bc.MinContractFee}))

	merged, err := Merge(p, p)
	require.NoError(t, err)
	require.True(t, merged.GetUTXO(storageUTXO.TxHash).IsTombstoned(12))
	r, ok := merged.Receipt(spendingTxHash)
	require.True(t, ok)
	require.Equal(t, bc.TxStatusOK, r.Status)
}

func TestMergeUnionsTombstones(t *testing.T) {
	storageUTXO := seedStorageUTXO()

	p1 := New()
	var tx1 bc.Hash
	tx1[0] = 0x01
	require.NoError(t, p1.SpendCoins(storageUTXO, 12, tx1))

	p2 := New()
	var tx2 bc.Hash
	tx2[0] = 0x02
	require.NoError(t, p2.SpendCoins(storageUTXO, 0, tx2))

	merged, err := Merge(p1, p2)
	require.NoError(t, err)
	u := merged.GetUTXO(storageUTXO.TxHash)
	require.True(t, u.IsTombstoned(12))
	require.True(t, u.IsTombstoned(0))
}

func TestMergeContractConflict(t *testing.T) {
	var addr bc.Address
	addr[0] = 0x05

	p1 := New()
	p1.SetContract(&contract.Contract{Address: addr, Data: contract.Data{"value": int64(1)}})

	p2 := New()
	p2.SetContract(&contract.Contract{Address: addr, Data: contract.Data{"value": int64(2)}})

	_, err := Merge(p1, p2)
	require.ErrorIs(t, err, ErrContractConflict)
}

func TestMergeContractHigherLevelWins(t *testing.T) {
	var addr bc.Address
	addr[0] = 0x05

	p1 := New()
	p1.SetContract(&contract.Contract{Address: addr, Data: contract.Data{"value": int64(1)}})

	p2 := New()
	p2.SetLevel(5)
	p2.SetContract(&contract.Contract{Address: addr, Data: contract.Data{"value": int64(2)}})

	merged, err := Merge(p1, p2)
	require.NoError(t, err)
	require.Equal(t, int64(2), merged.GetContract(addr).Data["value"])
}

func TestAddReceiptCollision(t *testing.T) {
	p := New()
	var txHash bc.Hash
	require.NoError(t, p.AddReceipt(txHash, &bc.Receipt{Status: bc.TxStatusOK}))
	err := p.AddReceipt(txHash, &bc.Receipt{Status: bc.TxStatusFailed})
	require.ErrorIs(t, err, ErrReceiptCollision)
}
