// Package bank executes signed transactions against an account store. Each
// transaction runs on private copies of its accounts and its writes are
// committed only if every instruction succeeds.
package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/cu"
	"go.firedancer.io/counter/pkg/metrics"
	"go.firedancer.io/counter/pkg/sealevel"
	"k8s.io/klog/v2"
)

type Bank struct {
	store            accounts.Accounts
	builtins         sealevel.Builtins
	rent             sealevel.SysvarRent
	computeUnitLimit uint64
	unmetered        bool
	metrics          *metrics.Metrics
	locks            *accountLocks

	// commitMu orders commits against reads that must not observe a
	// partially applied transaction.
	commitMu sync.RWMutex
}

type Option func(*Bank)

func WithComputeUnitLimit(limit uint64) Option {
	return func(b *Bank) {
		b.computeUnitLimit = limit
	}
}

// WithUnmeteredCompute lets transactions run past the compute unit limit.
// Usage is still measured and reported.
func WithUnmeteredCompute() Option {
	return func(b *Bank) {
		b.unmetered = true
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bank) {
		b.metrics = m
	}
}

// WithRent sets the rent parameters written to a store that has no rent
// sysvar yet. A store with an existing rent sysvar keeps its own.
func WithRent(rent sealevel.SysvarRent) Option {
	return func(b *Bank) {
		b.rent = rent
	}
}

// New opens a bank over store, creating the rent sysvar if store lacks one.
func New(store accounts.Accounts, opts ...Option) (*Bank, error) {
	b := &Bank{
		store:            store,
		builtins:         make(sealevel.Builtins),
		rent:             sealevel.DefaultRent(),
		computeUnitLimit: cu.DefaultComputeUnitLimit,
		locks:            newAccountLocks(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.NewUnregistered()
	}

	rent, err := sealevel.ReadRentSysvar(store)
	if errors.Is(err, sealevel.InstrErrUnsupportedSysvar) {
		klog.Infof("no rent sysvar in store, writing %+v", b.rent)
		err = sealevel.WriteRentSysvar(store, b.rent)
		if err != nil {
			return nil, fmt.Errorf("failed to write rent sysvar: %w", err)
		}
	} else if err != nil {
		return nil, err
	} else {
		b.rent = rent
	}

	return b, nil
}

// RegisterProgram makes fn executable under programId. Programs must be
// registered before any transaction is processed.
func (b *Bank) RegisterProgram(programId solana.PublicKey, fn sealevel.ProgramFn) error {
	if sealevel.IsNativeProgram(programId) {
		return fmt.Errorf("%s is a native program", programId)
	}
	if _, exists := b.builtins[programId]; exists {
		return fmt.Errorf("program %s already registered", programId)
	}
	b.builtins[programId] = fn

	b.commitMu.Lock()
	defer b.commitMu.Unlock()
	acct := sealevel.NewBuiltinProgramAccount(programId)
	return b.store.SetAccount((*[32]byte)(&programId), &acct)
}

func (b *Bank) Rent() sealevel.SysvarRent {
	return b.rent
}

func (b *Bank) GetAccount(pubkey solana.PublicKey) (*accounts.Account, error) {
	b.commitMu.RLock()
	defer b.commitMu.RUnlock()
	return b.store.GetAccount((*[32]byte)(&pubkey))
}

// SetGenesisAccount writes acct directly, bypassing execution.
func (b *Bank) SetGenesisAccount(acct *accounts.Account) error {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()
	return b.store.SetAccount((*[32]byte)(&acct.Key), acct)
}

func (b *Bank) isProgram(pubkey solana.PublicKey) bool {
	if sealevel.IsNativeProgram(pubkey) {
		return true
	}
	_, ok := b.builtins[pubkey]
	return ok
}
