package src

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestWaitReadyFailsFastWhenChildDies(t *testing.T) {
	requireSh(t)
	port, err := freePort()
	require.NoError(t, err)

	tun, err := superviseTunnel(exec.Command("sh", "-c", "exit 255"), port, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer func() { _ = tun.Close() }()

	start := time.Now()
	err = tun.waitReady(context.Background(), 30*time.Second)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh exited before the tunnel came up")
	assert.Less(t, time.Since(start), 10*time.Second, "a dead child must not ride out the poll limit")
}

func TestCloseReapsRunningChild(t *testing.T) {
	requireSh(t)
	port, err := freePort()
	require.NoError(t, err)

	tun, err := superviseTunnel(exec.Command("sh", "-c", "sleep 60"), port, zap.NewNop().Sugar())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, tun.Close())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCloseAfterChildAlreadyExited(t *testing.T) {
	requireSh(t)
	port, err := freePort()
	require.NoError(t, err)

	tun, err := superviseTunnel(exec.Command("sh", "-c", "exit 0"), port, zap.NewNop().Sugar())
	require.NoError(t, err)

	<-tun.done
	assert.NoError(t, tun.Close())
}
