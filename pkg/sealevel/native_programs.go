package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = solana.PublicKey(base58.MustDecodeFromString(NativeLoaderAddrStr))

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = solana.PublicKey(base58.MustDecodeFromString(SystemProgramAddrStr))

func resolveNativeProgramById(programId solana.PublicKey) (ProgramFn, error) {
	switch programId {
	case SystemProgramAddr:
		return SystemProgramExecute, nil
	}

	return nil, InstrErrUnsupportedProgramId
}

// NewBuiltinProgramAccount returns the executable account under which a
// builtin program is loaded.
func NewBuiltinProgramAccount(programId solana.PublicKey) accounts.Account {
	return accounts.Account{Key: programId, Lamports: 1, Data: []byte{}, Owner: NativeLoaderAddr, Executable: true}
}

func IsNativeProgram(pubkey solana.PublicKey) bool {
	_, err := resolveNativeProgramById(pubkey)
	return err == nil
}
