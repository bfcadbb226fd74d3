package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/cu"
	"go.firedancer.io/counter/pkg/rent"
	"go.firedancer.io/counter/pkg/sealevel"
	"go.firedancer.io/counter/pkg/util"
	"k8s.io/klog/v2"
)

var (
	TxErrInvalidSignature         = errors.New("TxErrInvalidSignature")
	TxErrSanitizeFailure          = errors.New("TxErrSanitizeFailure")
	TxErrProgramNotFound          = errors.New("TxErrProgramNotFound")
	TxErrAccountLoadedTwice       = errors.New("TxErrAccountLoadedTwice")
	TxErrInsufficientFundsForRent = rent.ErrInsufficientFundsForRent
)

// TxResult is the outcome of an executed transaction. Err is nil when the
// transaction succeeded and its writes were committed.
type TxResult struct {
	Signature    solana.Signature
	Err          error
	InstrIdx     int
	ComputeUnits uint64
	Logs         []string
	Modified     []solana.PublicKey
}

func (r *TxResult) Success() bool {
	return r.Err == nil
}

// InstructionErrorCode reports the failing instruction's error code, along
// with the program's custom code for custom errors.
func (r *TxResult) InstructionErrorCode() (int, uint32) {
	return sealevel.TranslateErrToInstrErrCode(r.Err)
}

func sanitizeTx(tx *solana.Transaction) error {
	if len(tx.Signatures) == 0 {
		return fmt.Errorf("%w: no signatures", TxErrSanitizeFailure)
	}
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return fmt.Errorf("%w: %d signatures for %d required signers", TxErrSanitizeFailure, len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}
	if len(tx.Message.Instructions) == 0 {
		return fmt.Errorf("%w: no instructions", TxErrSanitizeFailure)
	}

	seen := make(map[solana.PublicKey]struct{}, len(tx.Message.AccountKeys))
	for _, key := range tx.Message.AccountKeys {
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", TxErrAccountLoadedTwice, key)
		}
		seen[key] = struct{}{}
	}

	for _, instr := range tx.Message.Instructions {
		if int(instr.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			return fmt.Errorf("%w: program index %d out of range", TxErrSanitizeFailure, instr.ProgramIDIndex)
		}
		for _, idx := range instr.Accounts {
			if int(idx) >= len(tx.Message.AccountKeys) {
				return fmt.Errorf("%w: account index %d out of range", TxErrSanitizeFailure, idx)
			}
		}
	}

	return nil
}

func (b *Bank) isWritable(tx *solana.Transaction, pubkey solana.PublicKey) bool {
	writable, err := tx.Message.IsWritable(pubkey)
	if err != nil || !writable {
		return false
	}
	if b.isProgram(pubkey) || pubkey == sealevel.SysvarRentAddr {
		return false
	}

	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return false
	}
	for _, programId := range programIds {
		if pubkey == programId {
			return false
		}
	}

	return true
}

func (b *Bank) writableKeys(tx *solana.Transaction) []solana.PublicKey {
	return lo.Filter(tx.Message.AccountKeys, func(key solana.PublicKey, _ int) bool {
		return b.isWritable(tx, key)
	})
}

func (b *Bank) transactionAcctsFromTx(tx *solana.Transaction) (*sealevel.TransactionAccounts, error) {
	acctsForTx := make([]accounts.Account, 0, len(tx.Message.AccountKeys))

	for _, key := range tx.Message.AccountKeys {
		if b.isProgram(key) {
			acctsForTx = append(acctsForTx, sealevel.NewBuiltinProgramAccount(key))
			continue
		}

		acct, err := b.store.GetAccount((*[32]byte)(&key))
		if err != nil {
			return nil, err
		}
		acctsForTx = append(acctsForTx, *acct)
	}

	return sealevel.NewTransactionAccounts(acctsForTx), nil
}

func (b *Bank) instrAcctMetas(tx *solana.Transaction, instr solana.CompiledInstruction) ([]sealevel.AccountMeta, error) {
	resolved, err := instr.ResolveInstructionAccounts(&tx.Message)
	if err != nil {
		return nil, err
	}

	acctMetas := make([]sealevel.AccountMeta, 0, len(resolved))
	for _, am := range resolved {
		acctMetas = append(acctMetas, sealevel.AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: b.isWritable(tx, am.PublicKey)})
	}
	return acctMetas, nil
}

func (b *Bank) newExecCtx(transactionAccts *sealevel.TransactionAccounts, log *sealevel.LogRecorder) *sealevel.ExecutionCtx {
	txCtx := sealevel.NewTransactionCtxDefault(*transactionAccts)
	execCtx := &sealevel.ExecutionCtx{
		Log:                log,
		TransactionContext: txCtx,
		ComputeMeter:       cu.NewComputeMeter(b.computeUnitLimit),
		Builtins:           b.builtins,
	}
	if b.unmetered {
		execCtx.ComputeMeter.Disable()
	}
	execCtx.SysvarCache.SetRent(b.rent)
	return execCtx
}

// ProcessTransaction verifies and executes tx. A transaction that cannot be
// executed at all is returned as an error; a transaction that executed and
// failed is reported through TxResult.Err, with nothing committed.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *solana.Transaction) (*TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := sanitizeTx(tx)
	if err != nil {
		b.metrics.TxRejected.Inc()
		return nil, err
	}

	err = tx.VerifySignatures()
	if err != nil {
		b.metrics.TxRejected.Inc()
		return nil, fmt.Errorf("%w: %w", TxErrInvalidSignature, err)
	}

	for _, instr := range tx.Message.Instructions {
		programId, err := tx.ResolveProgramIDIndex(instr.ProgramIDIndex)
		if err != nil {
			b.metrics.TxRejected.Inc()
			return nil, fmt.Errorf("%w: %w", TxErrSanitizeFailure, err)
		}
		if !b.isProgram(programId) {
			b.metrics.TxRejected.Inc()
			return nil, fmt.Errorf("%w: %s", TxErrProgramNotFound, programId)
		}
	}

	waited, unlock := b.locks.lock(b.writableKeys(tx))
	defer unlock()
	b.metrics.LockWait.Observe(waited.Seconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := b.executeTransaction(tx)
	b.metrics.ComputeUnitsUsed.Observe(float64(result.ComputeUnits))
	if result.Err != nil {
		b.metrics.TxFailed.Inc()
		b.metrics.InstrErrors.WithLabelValues(errorLabel(result.Err)).Inc()
	} else {
		b.metrics.TxProcessed.Inc()
	}

	return result, nil
}

func (b *Bank) executeTransaction(tx *solana.Transaction) *TxResult {
	result := &TxResult{Signature: tx.Signatures[0], InstrIdx: -1}
	start := time.Now()

	b.commitMu.RLock()
	transactionAccts, err := b.transactionAcctsFromTx(tx)
	b.commitMu.RUnlock()
	if err != nil {
		result.Err = err
		return result
	}

	var log sealevel.LogRecorder
	execCtx := b.newExecCtx(transactionAccts, &log)
	txAccts := &execCtx.TransactionContext.Accounts

	isWritable := func(pubkey solana.PublicKey) bool { return b.isWritable(tx, pubkey) }
	preTxRentStates, err := rent.NewRentStateInfo(&b.rent, txAccts, isWritable)
	if err != nil {
		result.Err = err
		return result
	}

	for instrIdx, instr := range tx.Message.Instructions {
		acctMetas, err := b.instrAcctMetas(tx, instr)
		if err != nil {
			result.Err, result.InstrIdx = err, instrIdx
			break
		}

		instructionAccts := sealevel.InstructionAcctsFromAccountMetas(acctMetas, *txAccts)
		err = execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{uint64(instr.ProgramIDIndex)})
		if err != nil {
			klog.V(2).Infof("tx %s: instruction %d failed: %s", result.Signature, instrIdx, err)
			result.Err, result.InstrIdx = err, instrIdx
			break
		}
	}

	result.Logs = log.Logs
	result.ComputeUnits = execCtx.ComputeMeter.Used()
	for _, l := range log.Logs {
		klog.V(3).Infof("%s", l)
	}

	if result.Err == nil {
		postTxRentStates, err := rent.NewRentStateInfo(&b.rent, txAccts, isWritable)
		if err == nil {
			err = rent.VerifyRentStateChanges(preTxRentStates, postTxRentStates, txAccts)
		}
		if err != nil {
			result.Err = err
		}
	}

	if result.Err != nil {
		klog.V(2).Infof("tx %s failed after %s, not committing: %s", result.Signature, time.Since(start), result.Err)
		return result
	}

	modified, err := b.commit(txAccts)
	if err != nil {
		result.Err = fmt.Errorf("failed to commit tx %s: %w", result.Signature, err)
		return result
	}
	result.Modified = modified

	klog.V(2).Infof("tx %s committed %d accounts, %d CUs, took %s", result.Signature, len(modified), result.ComputeUnits, time.Since(start))
	return result
}

func (b *Bank) commit(txAccts *sealevel.TransactionAccounts) ([]solana.PublicKey, error) {
	var touched []*accounts.Account
	var deltas []accounts.Account
	var modified []solana.PublicKey

	for idx, acct := range txAccts.Accounts {
		if !txAccts.Touched[idx] {
			continue
		}
		touched = append(touched, acct)
		deltas = append(deltas, *acct)
		modified = append(modified, acct.Key)
	}
	if len(touched) == 0 {
		return nil, nil
	}

	b.commitMu.Lock()
	err := b.store.SetAccounts(touched)
	b.commitMu.Unlock()
	if err != nil {
		return nil, err
	}

	b.metrics.AccountsCommitted.Add(float64(len(touched)))
	if klog.V(3).Enabled() {
		klog.Infof("accounts delta hash %s", solana.HashFromBytes(util.DeltaHash(deltas)))
	}
	return modified, nil
}

func errorLabel(err error) string {
	var customErr *sealevel.CustomErr
	if errors.As(err, &customErr) {
		return fmt.Sprintf("Custom(%d)", customErr.Code)
	}
	code, _ := sealevel.TranslateErrToInstrErrCode(err)
	if code == sealevel.InstrErrCodeGenericError && !errors.Is(err, sealevel.InstrErrGenericError) {
		return "other"
	}
	return fmt.Sprintf("InstrErr(%d)", code)
}
