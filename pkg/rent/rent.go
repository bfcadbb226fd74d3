// Package rent checks that a transaction leaves every writable account in a
// permitted rent state.
package rent

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/sealevel"
)

var ErrInsufficientFundsForRent = errors.New("ErrInsufficientFundsForRent")

const (
	RentStateUninitialized = iota
	RentStateRentPaying
	RentStateRentExempt
)

type RentPayingInfo struct {
	Lamports uint64
	DataSize uint64
}

type RentStateInfo struct {
	RentState      uint64
	RentPayingInfo RentPayingInfo
}

func rentStateFromAcct(acct *accounts.Account, rent *sealevel.SysvarRent) *RentStateInfo {
	if acct.Lamports == 0 {
		return &RentStateInfo{RentState: RentStateUninitialized}
	} else if rent.IsExempt(acct.Lamports, uint64(len(acct.Data))) {
		return &RentStateInfo{RentState: RentStateRentExempt}
	} else {
		return &RentStateInfo{RentState: RentStateRentPaying, RentPayingInfo: RentPayingInfo{Lamports: acct.Lamports, DataSize: uint64(len(acct.Data))}}
	}
}

// NewRentStateInfo snapshots the rent state of every writable account.
// Entries for read-only accounts are nil.
func NewRentStateInfo(rent *sealevel.SysvarRent, txAccts *sealevel.TransactionAccounts, isWritable func(solana.PublicKey) bool) ([]*RentStateInfo, error) {
	rentStateInfos := make([]*RentStateInfo, 0, txAccts.Len())

	for idx := uint64(0); idx < txAccts.Len(); idx++ {
		acct, err := txAccts.GetAccount(idx)
		if err != nil {
			return nil, err
		}
		if isWritable(acct.Key) {
			rentStateInfos = append(rentStateInfos, rentStateFromAcct(acct, rent))
		} else {
			rentStateInfos = append(rentStateInfos, nil)
		}
	}

	return rentStateInfos, nil
}

func checkRentStateTransitionAllowed(preRentState *RentStateInfo, postRentState *RentStateInfo) bool {
	if preRentState == nil || postRentState == nil {
		return true
	}

	switch postRentState.RentState {
	case RentStateUninitialized, RentStateRentExempt:
		return true
	case RentStateRentPaying:
		if preRentState.RentState != RentStateRentPaying {
			return false
		}
		return postRentState.RentPayingInfo.DataSize == preRentState.RentPayingInfo.DataSize &&
			postRentState.RentPayingInfo.Lamports <= preRentState.RentPayingInfo.Lamports
	}

	return true
}

// VerifyRentStateChanges fails if any account moved into, or grew while in,
// the rent-paying state.
func VerifyRentStateChanges(preStates []*RentStateInfo, postStates []*RentStateInfo, txAccts *sealevel.TransactionAccounts) error {
	if len(preStates) != len(postStates) {
		return fmt.Errorf("rent state length mismatch: %d pre, %d post", len(preStates), len(postStates))
	}

	for idx := range preStates {
		if !checkRentStateTransitionAllowed(preStates[idx], postStates[idx]) {
			acct, err := txAccts.GetAccount(uint64(idx))
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: account %s", ErrInsufficientFundsForRent, acct.Key)
		}
	}

	return nil
}
