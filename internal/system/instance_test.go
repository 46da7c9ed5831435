package system

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInstanceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arkwarden.lock")

	first, err := AcquireInstanceLock(path)
	require.NoError(t, err)

	_, err = AcquireInstanceLock(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, first.Unlock())

	again, err := AcquireInstanceLock(path)
	require.NoError(t, err)
	assert.NoError(t, again.Unlock())
}
