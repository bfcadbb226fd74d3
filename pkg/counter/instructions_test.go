package counter

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initializeData(v uint64) []byte {
	data := make([]byte, InitializeCounterInstrLen)
	data[0] = CounterInstrTypeInitialize
	binary.LittleEndian.PutUint64(data[1:], v)
	return data
}

func TestDecodeInstruction(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Instruction
		err  error
	}{
		{"initialize", initializeData(48), InitializeCounter{InitialValue: 48}, nil},
		{"initialize max", initializeData(^uint64(0)), InitializeCounter{InitialValue: ^uint64(0)}, nil},
		{"increment", []byte{1}, IncrementCounter{}, nil},
		{"increment with trailing bytes", []byte{1, 9, 9, 9}, IncrementCounter{}, nil},
		{"empty", []byte{}, nil, CounterErrMalformedInstruction},
		{"initialize truncated", initializeData(48)[:5], nil, CounterErrMalformedInstruction},
		{"initialize tag only", []byte{0}, nil, CounterErrMalformedInstruction},
		{"initialize trailing bytes", append(initializeData(48), 0), nil, CounterErrMalformedInstruction},
		{"unknown tag", []byte{2}, nil, CounterErrUnknownInstruction},
		{"unknown tag 0xff", []byte{0xff, 0, 0}, nil, CounterErrUnknownInstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInstruction(tt.data)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeInstruction(t *testing.T) {
	assert.Equal(t, initializeData(0x0102030405060708), EncodeInstruction(InitializeCounter{InitialValue: 0x0102030405060708}))
	assert.Equal(t, []byte{1}, EncodeInstruction(IncrementCounter{}))

	for _, v := range []uint64{0, 1, 48, 1 << 40, ^uint64(0)} {
		decoded, err := DecodeInstruction(EncodeInstruction(InitializeCounter{InitialValue: v}))
		require.NoError(t, err)
		assert.Equal(t, InitializeCounter{InitialValue: v}, decoded)
	}
}

func TestCounterRecord(t *testing.T) {
	rec := CounterRecord{Count: 0x0a0b0c0d01020304}
	data, err := rec.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0x0d, 0x0c, 0x0b, 0x0a}, data)

	decoded, err := UnmarshalCounterRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, *decoded)

	_, err = UnmarshalCounterRecord(append(data, 0xee, 0xee))
	assert.ErrorIs(t, err, CounterErrCorruptAccountData)

	_, err = UnmarshalCounterRecord(data[:7])
	assert.ErrorIs(t, err, CounterErrCorruptAccountData)

	_, err = UnmarshalCounterRecord(nil)
	assert.ErrorIs(t, err, CounterErrCorruptAccountData)
}

func TestErrorCode(t *testing.T) {
	code, ok := ErrorCode(counterErr(CounterErrCounterOverflow, nil))
	assert.True(t, ok)
	assert.Equal(t, uint32(CounterErrCodeCounterOverflow), code)

	code, ok = ErrorCode(counterErr(CounterErrMalformedInstruction, nil))
	assert.True(t, ok)
	assert.Equal(t, uint32(CounterErrCodeMalformedInstruction), code)

	_, ok = ErrorCode(assert.AnError)
	assert.False(t, ok)
}
