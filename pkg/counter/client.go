package counter

import (
	"github.com/gagliardetto/solana-go"
)

// NewInitializeCounterInstruction builds an instruction that creates counter,
// funded by payer, holding initialValue. Both counter and payer must sign.
func NewInitializeCounterInstruction(programId, counter, payer solana.PublicKey, initialValue uint64) solana.Instruction {
	accts := solana.AccountMetaSlice{
		solana.Meta(counter).WRITE().SIGNER(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(programId, accts, EncodeInstruction(InitializeCounter{InitialValue: initialValue}))
}

func NewIncrementCounterInstruction(programId, counter solana.PublicKey) solana.Instruction {
	accts := solana.AccountMetaSlice{
		solana.Meta(counter).WRITE(),
	}
	return solana.NewInstruction(programId, accts, EncodeInstruction(IncrementCounter{}))
}
