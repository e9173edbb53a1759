package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/contract"
	"github.com/davincci9412/Cil-core/crypto"
	"github.com/davincci9412/Cil-core/patch"
	"github.com/davincci9412/Cil-core/utxo"
)

func seedUTXO(t *testing.T, addr bc.Address) (bc.Hash, *utxo.UTXO) {
	var h bc.Hash
	h[0] = 0xAA
	u := utxo.New(h, map[bc.OutputIndex]bc.Coins{
		0:  {Amount: 100000, Receiver: addr},
		12: {Amount: 100000, Receiver: addr},
		80: {Amount: 100000, Receiver: addr},
	})
	return h, u
}

func TestHappyPath(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	h, u := seedUTXO(t, addr)
	snapshot := map[bc.Hash]*utxo.UTXO{h: u}

	tx := &bc.Transaction{
		Inputs: []bc.TxInput{
			{ReferencedTxHash: h, OutputIndex: 12},
			{ReferencedTxHash: h, OutputIndex: 0},
			{ReferencedTxHash: h, OutputIndex: 80},
		},
		Outputs: []bc.TxOutput{{Coins: bc.Coins{Amount: 1000, Receiver: addr}}},
	}
	digest := tx.Hash()
	for i := range tx.Inputs {
		sig, err := crypto.Sign(digest.Bytes(), kp.Private)
		require.NoError(t, err)
		tx.Inputs[i].ClaimProof = sig
	}

	a := Application{}
	p, totalIn, err := a.ProcessTxInputs(tx, snapshot, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(300000), totalIn)

	totalOut, err := a.ProcessPayments(tx, p)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), totalOut)

	got := p.GetUTXO(tx.Hash())
	require.NotNil(t, got)
	require.False(t, got.IsEmpty())

	stored := p.GetUTXO(h)
	require.True(t, stored.IsTombstoned(0))
	require.True(t, stored.IsTombstoned(12))
	require.True(t, stored.IsTombstoned(80))
}

func TestUnknownOutputIndex(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	h, u := seedUTXO(t, addr)
	snapshot := map[bc.Hash]*utxo.UTXO{h: u}

	tx := &bc.Transaction{Inputs: []bc.TxInput{{ReferencedTxHash: h, OutputIndex: 17}}}
	digest := tx.Hash()
	sig, err := crypto.Sign(digest.Bytes(), kp.Private)
	require.NoError(t, err)
	tx.Inputs[0].ClaimProof = sig

	a := Application{}
	_, _, err = a.ProcessTxInputs(tx, snapshot, nil)
	require.ErrorIs(t, err, ErrBadTx)
	require.Equal(t, "Output #17 of Tx "+h.String()+" already spent!", err.Error())
}

func TestBadClaim(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	other, err := crypto.CreateKeyPair()
	require.NoError(t, err)

	h, u := seedUTXO(t, addr)
	snapshot := map[bc.Hash]*utxo.UTXO{h: u}

	tx := &bc.Transaction{Inputs: []bc.TxInput{{ReferencedTxHash: h, OutputIndex: 12}}}
	digest := tx.Hash()
	sig, err := crypto.Sign(digest.Bytes(), other.Private)
	require.NoError(t, err)
	tx.Inputs[0].ClaimProof = sig

	a := Application{}
	_, _, err = a.ProcessTxInputs(tx, snapshot, nil)
	require.ErrorIs(t, err, ErrBadTx)
	require.Equal(t, "Claim failed!", err.Error())
}

func TestCoinbaseIssue(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	tx := &bc.Transaction{Outputs: []bc.TxOutput{{Coins: bc.Coins{Amount: 100000, Receiver: addr}}}}
	require.True(t, tx.IsIssue())

	a := Application{}
	p := patch.New()
	totalOut, err := a.ProcessPayments(tx, p)
	require.NoError(t, err)
	require.Equal(t, uint64(100000), totalOut)

	u := p.GetUTXO(tx.Hash())
	require.NotNil(t, u)
	require.False(t, u.IsEmpty())
}

func TestIntraTxDoubleInput(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	h, u := seedUTXO(t, addr)
	snapshot := map[bc.Hash]*utxo.UTXO{h: u}

	tx := &bc.Transaction{Inputs: []bc.TxInput{
		{ReferencedTxHash: h, OutputIndex: 12},
		{ReferencedTxHash: h, OutputIndex: 12},
	}}
	digest := tx.Hash()
	sig, err := crypto.Sign(digest.Bytes(), kp.Private)
	require.NoError(t, err)
	tx.Inputs[0].ClaimProof = sig
	tx.Inputs[1].ClaimProof = sig

	a := Application{}
	_, _, err = a.ProcessTxInputs(tx, snapshot, nil)
	require.ErrorIs(t, err, ErrBadTx)
	require.Equal(t, "Tx "+h.String()+" index 12 already deleted!", err.Error())
}

func TestSequentialSpendAcrossMerge(t *testing.T) {
	kp, err := crypto.CreateKeyPair()
	require.NoError(t, err)
	addr := bc.Address(crypto.GetAddress(kp.Public))

	h, u := seedUTXO(t, addr)
	snapshot := map[bc.Hash]*utxo.UTXO{h: u}

	tx1 := &bc.Transaction{Inputs: []bc.TxInput{{ReferencedTxHash: h, OutputIndex: 12}}}
	d1 := tx1.Hash()
	sig1, err := crypto.Sign(d1.Bytes(), kp.Private)
	require.NoError(t, err)
	tx1.Inputs[0].ClaimProof = sig1

	a := Application{}
	p1, _, err := a.ProcessTxInputs(tx1, snapshot, nil)
	require.NoError(t, err)

	p2 := patch.New()

	p3, err := patch.Merge(p1, p2)
	require.NoError(t, err)

	tx2 := &bc.Transaction{Inputs: []bc.TxInput{{ReferencedTxHash: h, OutputIndex: 12}}}
	d2 := tx2.Hash()
	sig2, err := crypto.Sign(d2.Bytes(), kp.Private)
	require.NoError(t, err)
	tx2.Inputs[0].ClaimProof = sig2

	_, _, err = a.ProcessTxInputs(tx2, snapshot, p3)
	require.ErrorIs(t, err, ErrBadTx)
	require.Equal(t, "Tx "+h.String()+" index 12 already deleted!", err.Error())
}

func TestContractDeployAndRun(t *testing.T) {
	a := Application{}

	var txHash bc.Hash
	txHash[0] = 0x42
	wantAddr := bc.Address(crypto.AddressFromBytes(txHash.Bytes()))

	source := `class A extends Base {
		constructor(p) { super(); this._data = p; this._contractAddr = contractAddr; }
		getData() { return this._data; }
	}
	exports = new A(10);`

	p := patch.New()
	receipt, c := a.CreateContract(bc.MinContractFee, source, map[string]interface{}{}, txHash, [16]byte{}, p)
	require.Equal(t, bc.TxStatusOK, receipt.Status)
	require.Equal(t, wantAddr, receipt.ContractAddress)
	require.NotNil(t, c)
	require.Equal(t, int64(10), c.Data["_data"])
	require.Equal(t, wantAddr.String(), c.Data["_contractAddr"])
	require.Contains(t, c.Code, "getData")

	c2 := &contract.Contract{
		Address: wantAddr,
		Code:    "add(a){this.value+=a;}",
		Data:    contract.Data{"value": int64(100)},
	}
	receipt2, err := a.RunContract(bc.MinContractFee, "add(10)", c2, nil)
	require.NoError(t, err)
	require.Equal(t, bc.TxStatusOK, receipt2.Status)
	require.Equal(t, int64(110), c2.Data["value"])

	before := c2.Data["value"]
	receipt3, err := a.RunContract(bc.MinContractFee, "subtract(10)", c2, nil)
	require.NoError(t, err)
	require.Equal(t, bc.TxStatusFailed, receipt3.Status)
	require.Equal(t, before, c2.Data["value"])

	c3 := &contract.Contract{
		Address: wantAddr,
		Code:    "_default(){this.value+=17;}",
		Data:    contract.Data{"value": int64(100)},
	}
	receipt4, err := a.RunContract(bc.MinContractFee, "", c3, nil)
	require.NoError(t, err)
	require.Equal(t, bc.TxStatusOK, receipt4.Status)
	require.Equal(t, int64(117), c3.Data["value"])

	c4 := &contract.Contract{
		Address: wantAddr,
		Code:    "add(a){this.value+=a;}",
		Data:    contract.Data{"value": int64(100)},
	}
	receipt5, err := a.RunContract(bc.MinContractFee, "", c4, nil)
	require.NoError(t, err)
	require.Equal(t, bc.TxStatusFailed, receipt5.Status)
}
