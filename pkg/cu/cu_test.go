package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMeter_Consume(t *testing.T) {
	cm := NewComputeMeter(300)
	assert.NoError(t, cm.Consume(150))
	assert.NoError(t, cm.Consume(150))
	assert.Equal(t, uint64(300), cm.Used())
	assert.Equal(t, uint64(0), cm.Remaining())

	assert.ErrorIs(t, cm.Consume(1), ErrComputeExceeded)
	assert.True(t, cm.Exceeded())
	assert.Equal(t, uint64(300), cm.Used())
}

func TestComputeMeter_Disabled(t *testing.T) {
	cm := NewComputeMeter(10)
	cm.Disable()
	assert.NoError(t, cm.Consume(100))
	assert.True(t, cm.Exceeded())
}
