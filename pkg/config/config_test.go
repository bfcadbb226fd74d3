package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/counter/pkg/sealevel"
)

func TestConfig_Defaults(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLedgerDir, c.LedgerDir)
	assert.Equal(t, DefaultProgramID, c.ProgramID)
	assert.Equal(t, sealevel.DefaultRent(), c.SysvarRent())
	assert.Equal(t, DefaultBatchSize, c.BatchSize)
}

func TestConfig_Overrides(t *testing.T) {
	c, err := New([]byte(`
ledger_dir: /tmp/ledger
compute_unit_limit: 5000
unmetered_compute: true
rent:
  lamports_per_byte_year: 1000
`))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ledger", c.LedgerDir)
	assert.Equal(t, uint64(5000), c.ComputeUnitLimit)
	assert.True(t, c.UnmeteredCompute)
	assert.Equal(t, uint64(1000), c.Rent.LamportsPerByteYear)
	assert.Equal(t, float64(sealevel.DefaultExemptionThreshold), c.Rent.ExemptionThreshold)
	assert.Equal(t, DefaultProgramID, c.ProgramID)
}

func TestConfig_Invalid(t *testing.T) {
	_, err := New([]byte("batch_size: 0"))
	assert.Error(t, err)

	_, err = New([]byte("rent:\n  burn_percent: 101"))
	assert.Error(t, err)

	_, err = New([]byte("ledger_dir: [unterminated"))
	assert.Error(t, err)
}

func TestConfig_Load(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerDir, c.LedgerDir)

	c.LedgerDir = filepath.Join(dir, "ledger")
	b, err := c.Marshal()
	require.NoError(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
