// Package cu meters the compute units consumed by program execution.
package cu

import (
	"errors"
	"fmt"

	"go.firedancer.io/counter/pkg/safemath"
	"k8s.io/klog/v2"
)

const DefaultComputeUnitLimit = 200_000

var ErrComputeExceeded = errors.New("ErrComputeExceeded")

type ComputeMeter struct {
	remaining       uint64
	startingBalance uint64
	exceeded        bool
	disable         bool
}

func NewComputeMeter(budget uint64) ComputeMeter {
	return ComputeMeter{remaining: budget, startingBalance: budget}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeUnitLimit)
}

// Consume deducts cost from the meter. The meter saturates at zero; once the
// budget is exceeded every further call fails unless metering is disabled.
func (cm *ComputeMeter) Consume(cost uint64) error {
	cm.exceeded = cm.exceeded || cm.remaining < cost
	cm.remaining = safemath.SaturatingSubU64(cm.remaining, cost)

	if cm.exceeded {
		if cm.disable {
			klog.V(2).Infof("compute limit exceeded (cost %d), metering disabled", cost)
		} else {
			return fmt.Errorf("%w: cost %d over budget of %d", ErrComputeExceeded, cost, cm.startingBalance)
		}
	}

	return nil
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.startingBalance - cm.remaining
}

func (cm *ComputeMeter) Exceeded() bool {
	return cm.exceeded
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}

// Disable keeps the meter counting but stops it from failing execution.
func (cm *ComputeMeter) Disable() {
	cm.disable = true
}
