package sealevel

import "github.com/gagliardetto/solana-go"

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// ProgramFn is the entrypoint of a builtin program. It reads its program id,
// accounts and data from the current instruction context.
type ProgramFn func(execCtx *ExecutionCtx) error

type Builtins map[solana.PublicKey]ProgramFn
