package sealevel

type SysvarCache struct {
	rent *SysvarRent
}

func (sysvarCache *SysvarCache) SetRent(rent SysvarRent) {
	sysvarCache.rent = &rent
}

// GetRent mirrors the sol_get_rent_sysvar syscall.
func (sysvarCache *SysvarCache) GetRent() (*SysvarRent, error) {
	if sysvarCache.rent == nil {
		return nil, InstrErrUnsupportedSysvar
	}
	rent := *sysvarCache.rent
	return &rent, nil
}
