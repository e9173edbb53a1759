package bc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicAndMemoized(t *testing.T) {
	tx := &Transaction{
		Inputs:  []TxInput{{OutputIndex: 1}},
		Outputs: []TxOutput{{Coins: Coins{Amount: 10}}},
	}
	h1 := tx.Hash()
	h2 := tx.Hash()
	require.Equal(t, h1, h2)

	other := &Transaction{
		Inputs:  []TxInput{{OutputIndex: 1}},
		Outputs: []TxOutput{{Coins: Coins{Amount: 10}}},
	}
	require.Equal(t, h1, other.Hash())
}

func TestHashExcludesClaimProof(t *testing.T) {
	tx := &Transaction{Inputs: []TxInput{{OutputIndex: 1}}}
	before := tx.Hash()

	tx2 := &Transaction{Inputs: []TxInput{{OutputIndex: 1, ClaimProof: [65]byte{1, 2, 3}}}}
	require.Equal(t, before, tx2.Hash())
}

func TestHashAtEqualsHash(t *testing.T) {
	tx := &Transaction{Inputs: []TxInput{{OutputIndex: 1}, {OutputIndex: 2}}}
	for i := range tx.Inputs {
		require.Equal(t, tx.Hash(), tx.HashAt(i))
	}
}

func TestIsIssue(t *testing.T) {
	require.True(t, (&Transaction{}).IsIssue())
	require.False(t, (&Transaction{Inputs: []TxInput{{}}}).IsIssue())
}

func TestIsContractDeployAndInvocation(t *testing.T) {
	deploy := &Transaction{ContractCode: "class A extends Base {}"}
	require.True(t, deploy.IsContractDeploy())
	require.False(t, deploy.IsContractInvocation())

	var addr Address
	addr[0] = 1
	invoke := &Transaction{ContractAddress: addr}
	require.False(t, invoke.IsContractDeploy())
	require.True(t, invoke.IsContractInvocation())
}

func TestFee(t *testing.T) {
	fee, err := Fee(1000, 900)
	require.NoError(t, err)
	require.Equal(t, uint64(100), fee)

	_, err = Fee(100, 900)
	require.Error(t, err)
}

func TestAddressString(t *testing.T) {
	var a Address
	a[0] = 0xAB
	require.Equal(t, AddressPrefix, a.String()[:len(AddressPrefix)])
}

func TestParseInvocationDefaultDispatch(t *testing.T) {
	method, args, err := ParseInvocation("")
	require.NoError(t, err)
	require.Equal(t, "", method)
	require.Nil(t, args)
}

func TestParseInvocationWithArgs(t *testing.T) {
	method, args, err := ParseInvocation(`add(10, "hi, there", true)`)
	require.NoError(t, err)
	require.Equal(t, "add", method)
	require.Equal(t, []string{"10", `"hi, there"`, "true"}, args)
}

func TestParseInvocationMalformed(t *testing.T) {
	_, _, err := ParseInvocation("add(10")
	require.ErrorIs(t, err, ErrBadInvocation)

	_, _, err = ParseInvocation("1bad(10)")
	require.ErrorIs(t, err, ErrBadInvocation)
}

func TestParseArgLiterals(t *testing.T) {
	vals, err := ParseArgLiterals([]string{"10", `"hi"`, "true", "false"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(10), "hi", true, false}, vals)

	_, err = ParseArgLiterals([]string{"not-a-number"})
	require.ErrorIs(t, err, ErrBadInvocation)
}
