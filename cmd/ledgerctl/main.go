// Command ledgerctl is a small operator CLI for replaying a
// JSON-encoded block of transactions against an in-memory Storage and
// this module's Application, printing the resulting receipts. It
// exists for manual exercising of the core outside of tests, the way
// the teacher's cmd/corectl dispatches flat subcommands from a
// map[string]*command rather than a cobra-style tree.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/davincci9412/Cil-core/app"
	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/log"
	"github.com/davincci9412/Cil-core/patch"
	"github.com/davincci9412/Cil-core/storage"
	"github.com/davincci9412/Cil-core/utxo"
)

type command struct {
	f func(args []string)
}

var commands = map[string]*command{
	"replay": {replay},
}

func main() {
	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(0)
	}
	cmd := commands[os.Args[1]]
	if cmd == nil {
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		help(os.Stderr)
		os.Exit(1)
	}
	cmd.f(os.Args[2:])
}

func help(w *os.File) {
	fmt.Fprintln(w, "usage: ledgerctl <command> [args]")
	fmt.Fprintln(w, "commands:")
	for name := range commands {
		fmt.Fprintln(w, "  "+name)
	}
}

// blockFile is the replay subcommand's input format: a seed UTXO set
// standing in for Storage's pre-existing state, plus the ordered list
// of transactions to apply against it in one block.
type blockFile struct {
	Seed         []seedUTXO `json:"seed"`
	Transactions []txJSON   `json:"transactions"`
}

type seedUTXO struct {
	TxHash  string               `json:"tx_hash"`
	Outputs map[string]coinsJSON `json:"outputs"`
}

type coinsJSON struct {
	Amount   uint64 `json:"amount"`
	Receiver string `json:"receiver"`
}

type txJSON struct {
	Inputs             []inputJSON `json:"inputs"`
	Outputs            []coinsJSON `json:"outputs"`
	ContractCode       string      `json:"contract_code,omitempty"`
	ContractInvocation string      `json:"contract_invocation,omitempty"`
	ContractAddress    string      `json:"contract_address,omitempty"`
	WitnessGroupID     string      `json:"witness_group_id,omitempty"`
}

type inputJSON struct {
	ReferencedTxHash string `json:"referenced_tx_hash"`
	OutputIndex      uint32 `json:"output_index"`
	ClaimProof       string `json:"claim_proof"`
}

func replay(args []string) {
	ctx := context.Background()

	fs := pflag.NewFlagSet("replay", pflag.ExitOnError)
	level := fs.Uint64("level", 0, "block height to stamp the resulting patch with")
	if err := fs.Parse(args); err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ledgerctl replay [--level N] <block.json>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}
	var bf blockFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}

	store := storage.New()
	seedHashes := make([]bc.Hash, 0, len(bf.Seed))
	for _, s := range bf.Seed {
		txHash, err := decodeHash(s.TxHash)
		if err != nil {
			log.Fatal(ctx, log.KeyError, err)
		}
		outputs := make(map[bc.OutputIndex]bc.Coins, len(s.Outputs))
		for idxStr, c := range s.Outputs {
			var idx uint32
			fmt.Sscanf(idxStr, "%d", &idx)
			addr, err := decodeAddress(c.Receiver)
			if err != nil {
				log.Fatal(ctx, log.KeyError, err)
			}
			outputs[bc.OutputIndex(idx)] = bc.Coins{Amount: c.Amount, Receiver: addr}
		}
		store.Seed(utxo.New(txHash, outputs))
		seedHashes = append(seedHashes, txHash)
	}

	snapshot, err := store.GetUTXOsSnapshot(ctx, seedHashes)
	if err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}

	blockPatch := patch.New()
	blockPatch.SetLevel(*level)

	a := app.Application{}
	for i, tj := range bf.Transactions {
		tx, err := tj.toTransaction()
		if err != nil {
			log.Fatal(ctx, log.KeyError, err)
		}
		var receipt *bc.Receipt
		blockPatch, receipt, err = a.ProcessTransaction(tx, snapshot, blockPatch, nil)
		if err != nil {
			log.Error(ctx, err, "tx index", i)
			continue
		}
		fmt.Printf("tx %d: %s status=%s coins_used=%d\n", i, tx.Hash(), receipt.Status, receipt.CoinsUsed)
	}

	if err := store.ApplyPatch(ctx, blockPatch); err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}
}

func decodeHash(s string) (bc.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != bc.HashSize {
		return bc.Hash{}, fmt.Errorf("invalid hash %q", s)
	}
	var h bc.Hash
	copy(h[:], b)
	return h, nil
}

func decodeAddress(s string) (bc.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != bc.AddressSize {
		return bc.Address{}, fmt.Errorf("invalid address %q", s)
	}
	var a bc.Address
	copy(a[:], b)
	return a, nil
}

func (tj txJSON) toTransaction() (*bc.Transaction, error) {
	inputs := make([]bc.TxInput, len(tj.Inputs))
	for i, in := range tj.Inputs {
		txHash, err := decodeHash(in.ReferencedTxHash)
		if err != nil {
			return nil, err
		}
		sig, err := hex.DecodeString(in.ClaimProof)
		if err != nil || len(sig) != 65 {
			return nil, fmt.Errorf("invalid claim proof %q", in.ClaimProof)
		}
		var proof [65]byte
		copy(proof[:], sig)
		inputs[i] = bc.TxInput{ReferencedTxHash: txHash, OutputIndex: bc.OutputIndex(in.OutputIndex), ClaimProof: proof}
	}

	outputs := make([]bc.TxOutput, len(tj.Outputs))
	for i, o := range tj.Outputs {
		addr, err := decodeAddress(o.Receiver)
		if err != nil {
			return nil, err
		}
		outputs[i] = bc.TxOutput{Coins: bc.Coins{Amount: o.Amount, Receiver: addr}}
	}

	var contractAddr bc.Address
	if tj.ContractAddress != "" {
		var err error
		contractAddr, err = decodeAddress(tj.ContractAddress)
		if err != nil {
			return nil, err
		}
	}

	var groupID [16]byte
	if tj.WitnessGroupID != "" {
		b, err := hex.DecodeString(tj.WitnessGroupID)
		if err != nil || len(b) != 16 {
			return nil, fmt.Errorf("invalid witness group id %q", tj.WitnessGroupID)
		}
		copy(groupID[:], b)
	}

	return &bc.Transaction{
		Inputs:             inputs,
		Outputs:            outputs,
		ContractCode:       tj.ContractCode,
		ContractInvocation: tj.ContractInvocation,
		ContractAddress:    contractAddr,
		WitnessGroupID:     groupID,
	}, nil
}
