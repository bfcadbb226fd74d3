package bank

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/counter"
	"go.firedancer.io/counter/pkg/metrics"
	"go.firedancer.io/counter/pkg/sealevel"
)

const testPayerLamports = 10_000_000_000

type testLedger struct {
	bank      *Bank
	metrics   *metrics.Metrics
	programId solana.PublicKey
	payer     solana.PrivateKey
	counter   solana.PrivateKey
	blockhash uint64
}

func newPrivateKey(t *testing.T) solana.PrivateKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey
}

func newTestLedger(t *testing.T, store accounts.Accounts, opts ...Option) *testLedger {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	b, err := New(store, append([]Option{WithMetrics(m)}, opts...)...)
	require.NoError(t, err)

	l := &testLedger{bank: b, metrics: m, programId: newPrivateKey(t).PublicKey(), payer: newPrivateKey(t), counter: newPrivateKey(t)}
	require.NoError(t, b.RegisterProgram(l.programId, counter.ProcessInstruction))
	require.NoError(t, b.SetGenesisAccount(&accounts.Account{Key: l.payer.PublicKey(), Lamports: testPayerLamports, Owner: sealevel.SystemProgramAddr}))
	return l
}

func (l *testLedger) signTx(t *testing.T, instrs []solana.Instruction, signers ...solana.PrivateKey) *solana.Transaction {
	l.blockhash++
	var blockhash solana.Hash
	binary.LittleEndian.PutUint64(blockhash[:], l.blockhash)

	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(l.payer.PublicKey()))
	require.NoError(t, err)

	signers = append(signers, l.payer)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range signers {
			if signer.PublicKey() == key {
				return &signer
			}
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func (l *testLedger) initTx(t *testing.T, v uint64) *solana.Transaction {
	ix := counter.NewInitializeCounterInstruction(l.programId, l.counter.PublicKey(), l.payer.PublicKey(), v)
	return l.signTx(t, []solana.Instruction{ix}, l.counter)
}

func (l *testLedger) incrementTx(t *testing.T) *solana.Transaction {
	ix := counter.NewIncrementCounterInstruction(l.programId, l.counter.PublicKey())
	return l.signTx(t, []solana.Instruction{ix})
}

func (l *testLedger) count(t *testing.T) uint64 {
	acct, err := l.bank.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	rec, err := counter.UnmarshalCounterRecord(acct.Data)
	require.NoError(t, err)
	return rec.Count
}

func (l *testLedger) process(t *testing.T, tx *solana.Transaction) *TxResult {
	result, err := l.bank.ProcessTransaction(context.Background(), tx)
	require.NoError(t, err)
	return result
}

func TestBank_CounterScenario(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	result := l.process(t, l.initTx(t, 48))
	require.NoError(t, result.Err)
	assert.Contains(t, result.Logs, "Program log: Counter initialized with initial data 48")
	assert.ElementsMatch(t, []solana.PublicKey{l.payer.PublicKey(), l.counter.PublicKey()}, result.Modified)
	assert.Equal(t, uint64(48), l.count(t))

	counterAcct, err := l.bank.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, l.programId, counterAcct.Owner)
	assert.Equal(t, uint64(946560), counterAcct.Lamports)
	assert.Len(t, counterAcct.Data, counter.CounterRecordLen)

	payerAcct, err := l.bank.GetAccount(l.payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(testPayerLamports-946560), payerAcct.Lamports)

	result = l.process(t, l.incrementTx(t))
	require.NoError(t, result.Err)
	assert.Equal(t, uint64(49), l.count(t))

	for i := 0; i < 100; i++ {
		require.NoError(t, l.process(t, l.incrementTx(t)).Err)
	}
	assert.Equal(t, uint64(149), l.count(t))

	assert.Equal(t, float64(102), testutil.ToFloat64(l.metrics.TxProcessed))
	assert.Equal(t, float64(0), testutil.ToFloat64(l.metrics.TxFailed))
}

func TestBank_FailedInstructionCommitsNothing(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())
	require.NoError(t, l.process(t, l.initTx(t, 48)).Err)

	payerBefore, err := l.bank.GetAccount(l.payer.PublicKey())
	require.NoError(t, err)

	tx := l.signTx(t, []solana.Instruction{
		counter.NewIncrementCounterInstruction(l.programId, l.counter.PublicKey()),
		counter.NewInitializeCounterInstruction(l.programId, l.counter.PublicKey(), l.payer.PublicKey(), 7),
	}, l.counter)

	result := l.process(t, tx)
	assert.ErrorIs(t, result.Err, counter.CounterErrAccountAlreadyInitialized)
	assert.Equal(t, 1, result.InstrIdx)
	assert.Empty(t, result.Modified)

	code, custom := result.InstructionErrorCode()
	assert.Equal(t, sealevel.InstrErrCodeCustom, code)
	assert.Equal(t, uint32(counter.CounterErrCodeAccountAlreadyInitialized), custom)

	assert.Equal(t, uint64(48), l.count(t))
	payerAfter, err := l.bank.GetAccount(l.payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, payerBefore, payerAfter)

	assert.Equal(t, float64(1), testutil.ToFloat64(l.metrics.TxFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(l.metrics.InstrErrors.WithLabelValues("Custom(4)")))
}

func TestBank_ComputeUnitLimit(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts(), WithComputeUnitLimit(400))

	result := l.process(t, l.initTx(t, 1))
	assert.ErrorIs(t, result.Err, sealevel.InstrErrComputationalBudgetExceeded)
	assert.Equal(t, 0, result.InstrIdx)

	acct, err := l.bank.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	assert.True(t, acct.IsEmpty())
}

func TestBank_UnmeteredCompute(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts(), WithComputeUnitLimit(400), WithUnmeteredCompute())

	require.NoError(t, l.process(t, l.initTx(t, 1)).Err)
	result := l.process(t, l.incrementTx(t))
	require.NoError(t, result.Err)
	assert.Equal(t, uint64(400), result.ComputeUnits)
	assert.Equal(t, uint64(2), l.count(t))
}

func TestBank_IncrementNotOwner(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	ix := counter.NewIncrementCounterInstruction(l.programId, l.payer.PublicKey())
	result := l.process(t, l.signTx(t, []solana.Instruction{ix}))
	assert.ErrorIs(t, result.Err, counter.CounterErrNotOwner)
	assert.Equal(t, 0, result.InstrIdx)

	payer, err := l.bank.GetAccount(l.payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(testPayerLamports), payer.Lamports)
	assert.Empty(t, payer.Data)
}

func TestBank_IncrementOverflow(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	data := make([]byte, counter.CounterRecordLen)
	binary.LittleEndian.PutUint64(data, math.MaxUint64)
	require.NoError(t, l.bank.SetGenesisAccount(&accounts.Account{Key: l.counter.PublicKey(), Lamports: 946560, Data: data, Owner: l.programId}))

	result := l.process(t, l.incrementTx(t))
	assert.ErrorIs(t, result.Err, counter.CounterErrCounterOverflow)
	assert.Equal(t, uint64(math.MaxUint64), l.count(t))
}

func TestBank_RentStateViolation(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())
	require.NoError(t, l.bank.SetGenesisAccount(&accounts.Account{Key: l.payer.PublicKey(), Lamports: 1_000_000, Owner: sealevel.SystemProgramAddr}))

	result := l.process(t, l.initTx(t, 1))
	assert.ErrorIs(t, result.Err, TxErrInsufficientFundsForRent)
	assert.Equal(t, -1, result.InstrIdx)

	acct, err := l.bank.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	assert.True(t, acct.IsEmpty())
}

func TestBank_RejectsInvalidSignature(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	tx := l.initTx(t, 1)
	tx.Signatures[0][0] ^= 0xff

	_, err := l.bank.ProcessTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, TxErrInvalidSignature)
	assert.Equal(t, float64(1), testutil.ToFloat64(l.metrics.TxRejected))

	acct, err := l.bank.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	assert.True(t, acct.IsEmpty())
}

func TestBank_RejectsUnknownProgram(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	ix := counter.NewIncrementCounterInstruction(newPrivateKey(t).PublicKey(), l.counter.PublicKey())
	_, err := l.bank.ProcessTransaction(context.Background(), l.signTx(t, []solana.Instruction{ix}))
	assert.ErrorIs(t, err, TxErrProgramNotFound)
}

func TestBank_RejectsCancelledContext(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.bank.ProcessTransaction(ctx, l.initTx(t, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBank_RegisterProgram(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())

	assert.Error(t, l.bank.RegisterProgram(l.programId, counter.ProcessInstruction))
	assert.Error(t, l.bank.RegisterProgram(sealevel.SystemProgramAddr, counter.ProcessInstruction))

	acct, err := l.bank.GetAccount(l.programId)
	require.NoError(t, err)
	assert.True(t, acct.Executable)
	assert.Equal(t, sealevel.NativeLoaderAddr, acct.Owner)
}

func TestBank_BatchIncrements(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())
	require.NoError(t, l.process(t, l.initTx(t, 0)).Err)

	txs := make([]*solana.Transaction, 50)
	for i := range txs {
		txs[i] = l.incrementTx(t)
	}

	results, err := l.bank.ProcessBatch(context.Background(), txs, 8)
	require.NoError(t, err)
	require.Len(t, results, 50)
	for _, result := range results {
		require.NoError(t, result.Rejected)
		require.NoError(t, result.Err)
	}

	assert.Equal(t, uint64(50), l.count(t))
}

func TestBank_BatchRecordsRejections(t *testing.T) {
	l := newTestLedger(t, accounts.NewMemAccounts())
	require.NoError(t, l.process(t, l.initTx(t, 0)).Err)

	bad := l.incrementTx(t)
	bad.Signatures[0][1] ^= 0xff

	results, err := l.bank.ProcessBatch(context.Background(), []*solana.Transaction{l.incrementTx(t), bad}, 0)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Rejected, TxErrInvalidSignature)
	assert.Nil(t, results[1].TxResult)

	assert.Equal(t, uint64(1), l.count(t))
}

func TestBank_PersistentStore(t *testing.T) {
	dir := t.TempDir()
	db, err := accounts.OpenAccountsDb(dir)
	require.NoError(t, err)

	l := newTestLedger(t, db)
	require.NoError(t, l.process(t, l.initTx(t, 48)).Err)
	require.NoError(t, l.process(t, l.incrementTx(t)).Err)
	require.NoError(t, db.Close())

	db, err = accounts.OpenAccountsDb(dir)
	require.NoError(t, err)
	defer db.Close()

	b, err := New(db)
	require.NoError(t, err)
	assert.Equal(t, sealevel.DefaultRent(), b.Rent())

	acct, err := b.GetAccount(l.counter.PublicKey())
	require.NoError(t, err)
	rec, err := counter.UnmarshalCounterRecord(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(49), rec.Count)
}
