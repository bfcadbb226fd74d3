package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/counter/pkg/accounts"
)

// transferProgram forwards its first two instruction accounts to a system
// program transfer via cross-program invocation.
func transferProgram(lamports uint64) ProgramFn {
	return func(execCtx *ExecutionCtx) error {
		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		from, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return err
		}
		fromKey := from.Key()
		from.Drop()

		to, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
		if err != nil {
			return err
		}
		toKey := to.Key()
		to.Drop()

		execCtx.Msg("transferring %d", lamports)
		return execCtx.NativeInvoke(NewTransferInstruction(fromKey, toKey, lamports), nil)
	}
}

func TestExecute_NativeInvoke_SystemTransfer_Success(t *testing.T) {
	programId := newTestPubkey(t)
	programAcct := NewBuiltinProgramAccount(programId)
	systemProgramAcct := NewBuiltinProgramAccount(SystemProgramAddr)
	fromAcct := accounts.Account{Key: newTestPubkey(t), Lamports: 1000, Owner: SystemProgramAddr}
	toAcct := accounts.Account{Key: newTestPubkey(t), Owner: SystemProgramAddr}

	transactionAccts := NewTransactionAccounts([]accounts.Account{programAcct, fromAcct, toAcct, systemProgramAcct})
	acctMetas := []AccountMeta{{Pubkey: fromAcct.Key, IsSigner: true, IsWritable: true},
		{Pubkey: toAcct.Key, IsWritable: true},
		{Pubkey: SystemProgramAddr}}
	instructionAccts := InstructionAcctsFromAccountMetas(acctMetas, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: transferProgram(250)}
	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	require.NoError(t, err)

	from, _ := execCtx.TransactionContext.Accounts.GetAccount(1)
	to, _ := execCtx.TransactionContext.Accounts.GetAccount(2)
	assert.Equal(t, uint64(750), from.Lamports)
	assert.Equal(t, uint64(250), to.Lamports)

	logs := execCtx.Log.(*LogRecorder).Logs
	assert.Contains(t, logs, "Program "+programId.String()+" invoke [1]")
	assert.Contains(t, logs, "Program log: transferring 250")
	assert.Contains(t, logs, "Program "+SystemProgramAddr.String()+" invoke [2]")
	assert.Equal(t, uint64(2), execCtx.TransactionContext.InstructionTraceLength())
	assert.Equal(t, uint64(0), execCtx.StackHeight())
}

func TestExecute_NativeInvoke_SignerPrivilegeEscalation(t *testing.T) {
	programId := newTestPubkey(t)
	programAcct := NewBuiltinProgramAccount(programId)
	systemProgramAcct := NewBuiltinProgramAccount(SystemProgramAddr)
	fromAcct := accounts.Account{Key: newTestPubkey(t), Lamports: 1000, Owner: SystemProgramAddr}
	toAcct := accounts.Account{Key: newTestPubkey(t), Owner: SystemProgramAddr}

	transactionAccts := NewTransactionAccounts([]accounts.Account{programAcct, fromAcct, toAcct, systemProgramAcct})
	acctMetas := []AccountMeta{{Pubkey: fromAcct.Key, IsSigner: false, IsWritable: true},
		{Pubkey: toAcct.Key, IsWritable: true},
		{Pubkey: SystemProgramAddr}}
	instructionAccts := InstructionAcctsFromAccountMetas(acctMetas, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: transferProgram(250)}
	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrPrivilegeEscalation)

	from, _ := execCtx.TransactionContext.Accounts.GetAccount(1)
	assert.Equal(t, uint64(1000), from.Lamports)
}

func TestExecute_NativeInvoke_WritablePrivilegeEscalation(t *testing.T) {
	programId := newTestPubkey(t)
	programAcct := NewBuiltinProgramAccount(programId)
	systemProgramAcct := NewBuiltinProgramAccount(SystemProgramAddr)
	fromAcct := accounts.Account{Key: newTestPubkey(t), Lamports: 1000, Owner: SystemProgramAddr}
	toAcct := accounts.Account{Key: newTestPubkey(t), Owner: SystemProgramAddr}

	transactionAccts := NewTransactionAccounts([]accounts.Account{programAcct, fromAcct, toAcct, systemProgramAcct})
	acctMetas := []AccountMeta{{Pubkey: fromAcct.Key, IsSigner: true, IsWritable: true},
		{Pubkey: toAcct.Key, IsWritable: false},
		{Pubkey: SystemProgramAddr}}
	instructionAccts := InstructionAcctsFromAccountMetas(acctMetas, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: transferProgram(250)}
	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrPrivilegeEscalation)
}

func TestExecute_Reentrancy_NotAllowed(t *testing.T) {
	programId := newTestPubkey(t)
	programAcct := NewBuiltinProgramAccount(programId)
	systemProgramAcct := NewBuiltinProgramAccount(SystemProgramAddr)

	invokeSystem := func(execCtx *ExecutionCtx) error {
		if execCtx.StackHeight() == 1 {
			return execCtx.NativeInvoke(Instruction{ProgramId: SystemProgramAddr, Data: []byte{0xff}}, nil)
		}
		return nil
	}

	transactionAccts := NewTransactionAccounts([]accounts.Account{programAcct, systemProgramAcct})
	instructionAccts := InstructionAcctsFromAccountMetas([]AccountMeta{{Pubkey: programId}, {Pubkey: SystemProgramAddr}}, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: invokeSystem}

	// the system program rejects the payload, not the invocation itself
	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)

	// invoking the caller's own program id from a nested frame is re-entrancy
	execCtx = newTestExecCtx(NewTransactionAccounts([]accounts.Account{programAcct, systemProgramAcct}))
	txCtx := execCtx.TransactionContext
	next, err := txCtx.NextInstructionCtx()
	require.NoError(t, err)
	next.Configure([]uint64{0}, instructionAccts, nil)
	require.NoError(t, execCtx.Push())

	next, err = txCtx.NextInstructionCtx()
	require.NoError(t, err)
	next.Configure([]uint64{1}, instructionAccts, nil)
	require.NoError(t, execCtx.Push())

	next, err = txCtx.NextInstructionCtx()
	require.NoError(t, err)
	next.Configure([]uint64{0}, instructionAccts, nil)
	assert.ErrorIs(t, execCtx.Push(), InstrErrReentrancyNotAllowed)
}

func TestExecute_UnregisteredProgram(t *testing.T) {
	programId := newTestPubkey(t)
	transactionAccts := NewTransactionAccounts([]accounts.Account{NewBuiltinProgramAccount(programId)})

	execCtx := newTestExecCtx(transactionAccts)
	err := execCtx.ProcessInstruction(nil, nil, []uint64{0})
	assert.ErrorIs(t, err, InstrErrUnsupportedProgramId)
}

func TestExecute_ProgramNotOwnedByNativeLoader(t *testing.T) {
	programId := newTestPubkey(t)
	programAcct := accounts.Account{Key: programId, Lamports: 1, Owner: solana.BPFLoaderUpgradeableProgramID, Executable: true}
	transactionAccts := NewTransactionAccounts([]accounts.Account{programAcct})

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: func(*ExecutionCtx) error { return nil }}
	err := execCtx.ProcessInstruction(nil, nil, []uint64{0})
	assert.ErrorIs(t, err, InstrErrUnsupportedProgramId)
}

func TestBorrowedAccount_DoubleBorrowFails(t *testing.T) {
	programId := newTestPubkey(t)
	acct := accounts.Account{Key: newTestPubkey(t), Lamports: 10, Owner: programId}
	transactionAccts := NewTransactionAccounts([]accounts.Account{NewBuiltinProgramAccount(programId), acct})
	instructionAccts := InstructionAcctsFromAccountMetas([]AccountMeta{{Pubkey: acct.Key, IsWritable: true}}, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: func(execCtx *ExecutionCtx) error {
		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		require.NoError(t, err)

		first, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		require.NoError(t, err)

		_, err = instrCtx.BorrowInstructionAccount(txCtx, 0)
		assert.ErrorIs(t, err, InstrErrAccountBorrowFailed)

		first.Drop()
		first.Drop()

		second, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		require.NoError(t, err)
		defer second.Drop()
		return second.SetData([]byte{1, 2, 3})
	}}

	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	require.NoError(t, err)

	post, _ := execCtx.TransactionContext.Accounts.GetAccount(1)
	assert.Equal(t, []byte{1, 2, 3}, post.Data)
	assert.False(t, execCtx.TransactionContext.Accounts.IsBorrowed(1))
}

func TestBorrowedAccount_ExternalDataModified(t *testing.T) {
	programId := newTestPubkey(t)
	acct := accounts.Account{Key: newTestPubkey(t), Lamports: 10, Data: []byte{7}, Owner: newTestPubkey(t)}
	readonly := accounts.Account{Key: newTestPubkey(t), Lamports: 10, Data: []byte{7}, Owner: programId}
	transactionAccts := NewTransactionAccounts([]accounts.Account{NewBuiltinProgramAccount(programId), acct, readonly})
	instructionAccts := InstructionAcctsFromAccountMetas([]AccountMeta{{Pubkey: acct.Key, IsWritable: true}, {Pubkey: readonly.Key}}, *transactionAccts)

	execCtx := newTestExecCtx(transactionAccts)
	execCtx.Builtins = Builtins{programId: func(execCtx *ExecutionCtx) error {
		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		require.NoError(t, err)

		foreign, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, foreign.SetData([]byte{8}), InstrErrExternalAccountDataModified)
		assert.ErrorIs(t, foreign.CheckedSubLamports(1), InstrErrExternalAccountLamportSpend)
		foreign.Drop()

		ro, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
		require.NoError(t, err)
		defer ro.Drop()
		return ro.SetData([]byte{8})
	}}

	err := execCtx.ProcessInstruction(nil, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrReadonlyDataModified)
}
