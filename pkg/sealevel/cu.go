package sealevel

const (
	CUInvokeUnits                      = 1000
	CUSystemProgramDefaultComputeUnits = 150
)
