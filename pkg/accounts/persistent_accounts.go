package accounts

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/base58"
)

// PersistentAccountsDb stores accounts in a pebble database keyed by address.
type PersistentAccountsDb struct {
	db *pebble.DB
}

func OpenAccountsDb(dir string) (*PersistentAccountsDb, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts db at %s: %w", dir, err)
	}
	return &PersistentAccountsDb{db: db}, nil
}

func (m *PersistentAccountsDb) Close() error {
	return m.db.Close()
}

func (m *PersistentAccountsDb) GetAccount(pubkey *[32]byte) (*Account, error) {
	key := solana.PublicKeyFromBytes(pubkey[:])

	acctBytes, closer, err := m.db.Get(pubkey[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return &Account{Key: key}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}
	buf := make([]byte, len(acctBytes))
	copy(buf, acctBytes)
	closer.Close()

	acct, err := Unmarshal(key, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s from accounts db: %w", key, err)
	}

	return acct, nil
}

func (m *PersistentAccountsDb) SetAccount(pubkey *[32]byte, acct *Account) error {
	acctBytes, err := acct.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize account %s for storage: %w", base58.Encode(pubkey[:]), err)
	}

	err = m.db.Set(pubkey[:], acctBytes, pebble.Sync)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}

	return nil
}

func (m *PersistentAccountsDb) SetAccounts(accts []*Account) error {
	batch := m.db.NewBatch()
	defer batch.Close()

	for _, acct := range accts {
		acctBytes, err := acct.Marshal()
		if err != nil {
			return fmt.Errorf("failed to serialize account %s for storage: %w", acct.Key, err)
		}
		err = batch.Set(acct.Key[:], acctBytes, nil)
		if err != nil {
			return err
		}
	}

	err := batch.Commit(pebble.Sync)
	if err != nil {
		return fmt.Errorf("error committing %d accounts: %w", len(accts), err)
	}
	return nil
}
