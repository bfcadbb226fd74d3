// Package counter implements a program that keeps a single u64 counter in
// an account it owns. Initialize allocates the account through the system
// program and stores the initial value; increment adds one.
package counter

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/safemath"
	"go.firedancer.io/counter/pkg/sealevel"
	"k8s.io/klog/v2"
)

const CounterDefaultComputeUnits = 500

// instruction account positions
const (
	initializeCounterAcctIdx = 0
	initializePayerAcctIdx   = 1
	initializeNumAccounts    = 3
	incrementCounterAcctIdx  = 0
	incrementNumAccounts     = 1
)

// ProcessInstruction is the counter program's entrypoint.
func ProcessInstruction(execCtx *sealevel.ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CounterDefaultComputeUnits)
	if err != nil {
		return sealevel.InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	programId, err := instrCtx.ProgramId(txCtx)
	if err != nil {
		return err
	}

	instr, err := DecodeInstruction(instrCtx.Data)
	if err != nil {
		klog.V(2).Infof("counter: rejecting instruction data %x: %s", instrCtx.Data, err)
		return err
	}

	switch ix := instr.(type) {
	case InitializeCounter:
		return createCounter(execCtx, programId, ix.InitialValue)
	case IncrementCounter:
		return incrementCounter(execCtx, programId)
	default:
		return counterErr(CounterErrUnknownInstruction, nil)
	}
}

func createCounter(execCtx *sealevel.ExecutionCtx, programId solana.PublicKey, initialValue uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	err = instrCtx.CheckNumOfInstructionAccounts(initializeNumAccounts)
	if err != nil {
		return err
	}

	counterAcct, err := instrCtx.BorrowInstructionAccount(txCtx, initializeCounterAcctIdx)
	if err != nil {
		return err
	}
	counterKey := counterAcct.Key()
	inUse := len(counterAcct.Data()) != 0 || counterAcct.Owner() == programId
	counterAcct.Drop()

	if inUse {
		return counterErr(CounterErrAccountAlreadyInitialized, nil)
	}

	payerAcct, err := instrCtx.BorrowInstructionAccount(txCtx, initializePayerAcctIdx)
	if err != nil {
		return err
	}
	payerKey := payerAcct.Key()
	payerAcct.Drop()

	rent, err := execCtx.SysvarCache.GetRent()
	if err != nil {
		return err
	}
	lamports := rent.MinimumBalance(CounterRecordLen)

	createAcct := sealevel.NewCreateAccountInstruction(payerKey, counterKey, lamports, CounterRecordLen, programId)
	err = execCtx.NativeInvoke(createAcct, nil)
	if errors.Is(err, sealevel.SystemProgErrAccountAlreadyInUse) {
		return counterErr(CounterErrAccountAlreadyInitialized, err)
	} else if err != nil {
		return counterErr(CounterErrAllocationFailed, err)
	}

	rec := CounterRecord{Count: initialValue}
	data, err := rec.Marshal()
	if err != nil {
		return err
	}

	counterAcct, err = instrCtx.BorrowInstructionAccount(txCtx, initializeCounterAcctIdx)
	if err != nil {
		return err
	}
	defer counterAcct.Drop()

	err = counterAcct.SetData(data)
	if err != nil {
		return err
	}

	execCtx.Msg("Counter initialized with initial data %d", initialValue)
	return nil
}

func incrementCounter(execCtx *sealevel.ExecutionCtx, programId solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	err = instrCtx.CheckNumOfInstructionAccounts(incrementNumAccounts)
	if err != nil {
		return err
	}

	counterAcct, err := instrCtx.BorrowInstructionAccount(txCtx, incrementCounterAcctIdx)
	if err != nil {
		return err
	}
	defer counterAcct.Drop()

	if counterAcct.Owner() != programId {
		klog.V(2).Infof("counter: account %s is owned by %s, not %s", counterAcct.Key(), counterAcct.Owner(), programId)
		return counterErr(CounterErrNotOwner, sealevel.InstrErrIncorrectProgramId)
	}

	rec, err := UnmarshalCounterRecord(counterAcct.Data())
	if err != nil {
		return err
	}

	rec.Count, err = safemath.CheckedAddU64(rec.Count, 1)
	if err != nil {
		return counterErr(CounterErrCounterOverflow, nil)
	}

	data, err := rec.Marshal()
	if err != nil {
		return err
	}

	err = counterAcct.SetData(data)
	if err != nil {
		return err
	}

	execCtx.Msg("Counter incremented to %d", rec.Count)
	return nil
}
