package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/accounts"
)

// TransactionAccounts holds the working copies of every account referenced by
// a transaction. An account can be borrowed by at most one BorrowedAccount at
// a time.
type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := &TransactionAccounts{
		Accounts: make([]*accounts.Account, len(accts)),
		Touched:  make([]bool, len(accts)),
		borrowed: make([]bool, len(accts)),
	}
	for idx := range accts {
		txAccounts.Accounts[idx] = accts[idx].Clone()
	}
	return txAccounts
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Borrow(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	if txAccounts.borrowed[idx] {
		return nil, InstrErrAccountBorrowFailed
	}
	txAccounts.borrowed[idx] = true
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Unlock(idx uint64) {
	if idx < txAccounts.Len() {
		txAccounts.borrowed[idx] = false
	}
}

func (txAccounts *TransactionAccounts) IsBorrowed(idx uint64) bool {
	return idx < txAccounts.Len() && txAccounts.borrowed[idx]
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) IndexOf(pubkey solana.PublicKey) (uint64, bool) {
	for idx, acct := range txAccounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), true
		}
	}
	return 0, false
}
