package ferro

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeChip(t *testing.T, exported ...int) string {
	t.Helper()
	chip := t.TempDir()
	for _, ch := range exported {
		require.NoError(t, os.MkdirAll(filepath.Join(chip, "pwm"+strconv.Itoa(ch)), 0o755))
	}
	return chip
}

func readAttr(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestSysfsPWM(t *testing.T) {
	chip := fakeChip(t, 0, 1, 2, 3)
	cfg := DefaultPWMConfig()
	cfg.Chip = chip

	p, err := OpenSysfsPWM(cfg)
	require.NoError(t, err)

	ch0 := filepath.Join(chip, "pwm0")
	assert.Equal(t, "2000000", readAttr(t, filepath.Join(ch0, "period")))
	assert.Equal(t, "1", readAttr(t, filepath.Join(ch0, "enable")))
	assert.Equal(t, "0", readAttr(t, filepath.Join(ch0, "duty_cycle")))

	require.NoError(t, p.Write(Duty{Middle: 100, Up: 70}))
	assert.Equal(t, "2000000", readAttr(t, filepath.Join(ch0, "duty_cycle")))
	assert.Equal(t, "1400000", readAttr(t, filepath.Join(chip, "pwm3", "duty_cycle")))

	require.NoError(t, p.Close())
	assert.Equal(t, "0", readAttr(t, filepath.Join(ch0, "duty_cycle")))
	assert.Equal(t, "0", readAttr(t, filepath.Join(ch0, "enable")))
	assert.ErrorIs(t, p.Write(Duty{}), os.ErrClosed)
}

func TestSysfsPWM_MissingChip(t *testing.T) {
	cfg := DefaultPWMConfig()
	cfg.Chip = filepath.Join(t.TempDir(), "absent")
	_, err := OpenSysfsPWM(cfg)
	assert.Error(t, err)
}
