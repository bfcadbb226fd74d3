package counter

import (
	"github.com/near/borsh-go"
)

// CounterRecordLen is the size of a counter account's data.
const CounterRecordLen = 8

type CounterRecord struct {
	Count uint64
}

func (rec *CounterRecord) Marshal() ([]byte, error) {
	return borsh.Serialize(*rec)
}

// UnmarshalCounterRecord decodes a record. data must be exactly
// CounterRecordLen bytes.
func UnmarshalCounterRecord(data []byte) (*CounterRecord, error) {
	if len(data) != CounterRecordLen {
		return nil, counterErr(CounterErrCorruptAccountData, nil)
	}

	var rec CounterRecord
	err := borsh.Deserialize(&rec, data)
	if err != nil {
		return nil, counterErr(CounterErrCorruptAccountData, err)
	}
	return &rec, nil
}
