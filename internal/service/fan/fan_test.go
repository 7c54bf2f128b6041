package fan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpu-fan-control/internal/config"
)

// recordingRunner records every command line.
type recordingRunner struct {
	calls []string
	err   error
}

func (r *recordingRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))

	return nil, r.err
}

// TestNvidiaController issues the attributes for every fan.
func TestNvidiaController(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := NewNvidiaController(runner, 1, 3)

	require.NoError(t, c.Enable(context.Background()))
	require.NoError(t, c.SetSpeed(context.Background(), 72))
	require.NoError(t, c.Restore(context.Background()))

	require.Equal(t, []string{
		"nvidia-settings -a [gpu:1]/GPUFanControlState=1",
		"nvidia-settings -a [fan:0]/GPUTargetFanSpeed=72",
		"nvidia-settings -a [fan:1]/GPUTargetFanSpeed=72",
		"nvidia-settings -a [fan:2]/GPUTargetFanSpeed=72",
		"nvidia-settings -a [gpu:1]/GPUFanControlState=0",
	}, runner.calls)
}

// TestNvidiaController_Failure stops at the first failing fan.
func TestNvidiaController_Failure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{err: errors.New("no display")}
	c := NewNvidiaController(runner, 0, 2)

	require.Error(t, c.SetSpeed(context.Background(), 50))
	require.Len(t, runner.calls, 1)
}

// TestNew returns a monitor-only controller for amdgpu.
func TestNew(t *testing.T) {
	t.Parallel()

	require.IsType(t, &NvidiaController{}, New(config.VendorNvidia, &recordingRunner{}, 0, 1))
	require.IsType(t, MonitorOnly{}, New(config.VendorAMD, &recordingRunner{}, 0, 1))

	m := MonitorOnly{}
	require.NoError(t, m.Enable(context.Background()))
	require.NoError(t, m.SetSpeed(context.Background(), 40))
	require.NoError(t, m.Restore(context.Background()))
}
