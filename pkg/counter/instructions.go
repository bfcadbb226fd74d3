package counter

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
)

const (
	CounterInstrTypeInitialize = 0
	CounterInstrTypeIncrement  = 1
)

// InitializeCounterInstrLen is the exact length of an initialize payload:
// the tag followed by the little-endian initial value.
const InitializeCounterInstrLen = 9

// Instruction is one of InitializeCounter or IncrementCounter.
type Instruction interface {
	isCounterInstruction()
}

type InitializeCounter struct {
	InitialValue uint64
}

type IncrementCounter struct{}

func (InitializeCounter) isCounterInstruction() {}
func (IncrementCounter) isCounterInstruction()  {}

// DecodeInstruction parses instruction data. Initialize must be exactly
// InitializeCounterInstrLen bytes; bytes after an increment tag are ignored.
func DecodeInstruction(data []byte) (Instruction, error) {
	decoder := bin.NewBinDecoder(data)

	instrType, err := decoder.ReadUint8()
	if err != nil {
		return nil, counterErr(CounterErrMalformedInstruction, nil)
	}

	switch instrType {
	case CounterInstrTypeInitialize:
		initialValue, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return nil, counterErr(CounterErrMalformedInstruction, nil)
		}
		if decoder.HasRemaining() {
			return nil, counterErr(CounterErrMalformedInstruction, nil)
		}
		return InitializeCounter{InitialValue: initialValue}, nil

	case CounterInstrTypeIncrement:
		return IncrementCounter{}, nil

	default:
		return nil, counterErr(CounterErrUnknownInstruction, nil)
	}
}

func EncodeInstruction(instr Instruction) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	switch ix := instr.(type) {
	case InitializeCounter:
		_ = encoder.WriteUint8(CounterInstrTypeInitialize)
		_ = encoder.WriteUint64(ix.InitialValue, bin.LE)
	case IncrementCounter:
		_ = encoder.WriteUint8(CounterInstrTypeIncrement)
	}

	return buf.Bytes()
}
