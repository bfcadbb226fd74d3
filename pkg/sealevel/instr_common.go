package sealevel

func InstructionAcctsFromAccountMetas(instrAcctMetas []AccountMeta, txAccounts TransactionAccounts) []InstructionAccount {
	var instrAccts []InstructionAccount

	for instrAcctIdx, accountMeta := range instrAcctMetas {
		idxInTx, ok := txAccounts.IndexOf(accountMeta.Pubkey)
		if !ok {
			idxInTx = txAccounts.Len()
		}

		idxInCallee := uint64(instrAcctIdx)
		for pos, instrAcct := range instrAccts {
			if instrAcct.IndexInTransaction == idxInTx {
				idxInCallee = uint64(pos)
				break
			}
		}

		newInstrAcct := InstructionAccount{IndexInTransaction: idxInTx, IndexInCaller: idxInTx, IndexInCallee: idxInCallee, IsSigner: accountMeta.IsSigner, IsWritable: accountMeta.IsWritable}
		instrAccts = append(instrAccts, newInstrAcct)
	}

	return instrAccts
}
