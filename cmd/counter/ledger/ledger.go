// Package ledger wires the configuration, the persistent account store and
// the bank together for the CLI commands.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/bank"
	"go.firedancer.io/counter/pkg/config"
	"go.firedancer.io/counter/pkg/counter"
	"go.firedancer.io/counter/pkg/metrics"
	"go.firedancer.io/counter/pkg/util"
	"k8s.io/klog/v2"
)

// ConfigPath is set by the root command's --config flag.
var ConfigPath string

var ErrNoLedger = errors.New("ledger does not exist, run `counter genesis` first")

type Ledger struct {
	Config    *config.Config
	Bank      *bank.Bank
	ProgramID solana.PublicKey

	db       *accounts.PersistentAccountsDb
	registry *prometheus.Registry
	closed   bool
}

// exitf is replaced in tests.
var exitf = klog.Exitf

func accountsDir(cfg *config.Config) string {
	return filepath.Join(cfg.LedgerDir, "accounts")
}

// Open loads the config and opens the ledger. With create set, a missing
// ledger directory is created; otherwise it is an error.
func Open(create bool) (*Ledger, error) {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return nil, err
	}

	programId, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program_id %q: %w", cfg.ProgramID, err)
	}

	if _, err := os.Stat(accountsDir(cfg)); os.IsNotExist(err) {
		if !create {
			return nil, ErrNoLedger
		}
		if err := os.MkdirAll(cfg.LedgerDir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := accounts.OpenAccountsDb(accountsDir(cfg))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := []bank.Option{
		bank.WithRent(cfg.SysvarRent()),
		bank.WithComputeUnitLimit(cfg.ComputeUnitLimit),
		bank.WithMetrics(m),
	}
	if cfg.UnmeteredCompute {
		opts = append(opts, bank.WithUnmeteredCompute())
	}

	b, err := bank.New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	err = b.RegisterProgram(programId, counter.ProcessInstruction)
	if err != nil {
		db.Close()
		return nil, err
	}

	klog.V(2).Infof("opened ledger at %s, program %s", cfg.LedgerDir, programId)
	return &Ledger{Config: cfg, Bank: b, ProgramID: programId, db: db, registry: registry}, nil
}

// Close flushes the metrics file, if configured, and closes the store.
// Calls after the first are no-ops.
func (l *Ledger) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	var metricsErr error
	if l.Config.MetricsFile != "" {
		metricsErr = prometheus.WriteToTextfile(l.Config.MetricsFile, l.registry)
	}
	return errors.Join(metricsErr, l.db.Close())
}

// Exitf closes the ledger and exits. Commands use it instead of klog.Exitf
// once the ledger is open, since a deferred Close does not run on exit.
func (l *Ledger) Exitf(format string, args ...any) {
	util.VerboseHandleError(l.Close())
	exitf(format, args...)
}

func (l *Ledger) PayerKeypairPath() string {
	if l.Config.PayerKeypair != "" {
		return l.Config.PayerKeypair
	}
	return filepath.Join(l.Config.LedgerDir, "payer.json")
}

func (l *Ledger) CounterKeypairPath() string {
	if l.Config.CounterKeypair != "" {
		return l.Config.CounterKeypair
	}
	return filepath.Join(l.Config.LedgerDir, "counter.json")
}

// Send signs instrs with payer and signers and executes them as one
// transaction.
func (l *Ledger) Send(ctx context.Context, instrs []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*bank.TxResult, error) {
	tx, err := l.NewTransaction(instrs, payer, signers...)
	if err != nil {
		return nil, err
	}
	return l.Bank.ProcessTransaction(ctx, tx)
}

// NewTransaction builds a signed transaction. The ledger has no blockhash
// queue, so a random hash keeps otherwise identical transactions distinct.
func (l *Ledger) NewTransaction(instrs []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*solana.Transaction, error) {
	var blockhash solana.Hash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, err
	}

	signers = append(signers, payer)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range signers {
			if signer.PublicKey() == key {
				return &signer
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// NewTransactions builds n signed transactions carrying instrs, signing them
// on a worker pool.
func (l *Ledger) NewTransactions(n int, instrs []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) ([]*solana.Transaction, error) {
	txs := make([]*solana.Transaction, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(l.Config.BatchSize, func(i interface{}) {
		defer wg.Done()
		idx := i.(int)
		txs[idx], errs[idx] = l.NewTransaction(instrs, payer, signers...)
	})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	for i := 0; i < n; i++ {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return txs, nil
}

func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return key, nil
}

// LoadOrCreateKeypair loads the keypair at path, generating and writing a
// new one if the file does not exist.
func LoadOrCreateKeypair(path string) (solana.PrivateKey, bool, error) {
	if _, err := os.Stat(path); err == nil {
		key, err := LoadKeypair(path)
		return key, false, err
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, false, err
	}
	return key, true, WriteKeypair(path, key)
}

// WriteKeypair writes key in the solana-keygen JSON format.
func WriteKeypair(path string, key solana.PrivateKey) error {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// PrintResult writes the transaction outcome and program logs to stdout.
func PrintResult(result *bank.TxResult) {
	fmt.Printf("signature: %s\n", result.Signature)
	for _, l := range result.Logs {
		fmt.Printf("  %s\n", l)
	}
	if result.Err != nil {
		code, custom := result.InstructionErrorCode()
		if result.InstrIdx >= 0 {
			fmt.Printf("failed: instruction %d: %s (code %d, custom %d)\n", result.InstrIdx, result.Err, code, custom)
		} else {
			fmt.Printf("failed: %s\n", result.Err)
		}
		return
	}
	fmt.Printf("success, %d compute units\n", result.ComputeUnits)
}
