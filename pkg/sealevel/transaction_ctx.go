package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

const (
	MaxInstructionStackDepth = 5
	MaxInstructionTraceLen   = 64
)

type TransactionCtx struct {
	Accounts         TransactionAccounts
	instructionStack []uint64
	instructionTrace []*InstructionCtx
	maxStackHeight   uint64
	maxTraceLength   uint64
}

func NewTransactionCtx(txAccts TransactionAccounts, maxStackHeight uint64, maxTraceLength uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:         txAccts,
		instructionTrace: []*InstructionCtx{new(InstructionCtx)},
		maxStackHeight:   maxStackHeight,
		maxTraceLength:   maxTraceLength,
	}
}

func NewTransactionCtxDefault(txAccts TransactionAccounts) *TransactionCtx {
	return NewTransactionCtx(txAccts, MaxInstructionStackDepth, MaxInstructionTraceLen)
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, InstrErrNotEnoughAccountKeys
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	idx, ok := txCtx.Accounts.IndexOf(pubkey)
	if !ok {
		return 0, InstrErrMissingAccount
	}
	return idx, nil
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace) - 1)
}

func (txCtx *TransactionCtx) InstructionCtxAtIndexInTrace(idx uint64) (*InstructionCtx, error) {
	if idx >= uint64(len(txCtx.instructionTrace)) {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[idx], nil
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= txCtx.InstructionCtxStackHeight() {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtIndexInTrace(txCtx.instructionStack[level])
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	level := txCtx.InstructionCtxStackHeight()
	if level == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtNestingLevel(level - 1)
}

// NextInstructionCtx returns the not yet pushed slot at the end of the trace.
func (txCtx *TransactionCtx) NextInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionTrace) == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[len(txCtx.instructionTrace)-1], nil
}

func (txCtx *TransactionCtx) Push() error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.maxStackHeight {
		return InstrErrCallDepth
	}
	if txCtx.InstructionTraceLength() >= txCtx.maxTraceLength {
		return InstrErrMaxInstructionTraceLength
	}

	idx := txCtx.InstructionTraceLength()
	txCtx.instructionStack = append(txCtx.instructionStack, idx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, new(InstructionCtx))
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]
	return nil
}
