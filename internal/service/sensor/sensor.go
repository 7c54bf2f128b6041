package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
)

var (
	// ErrNoDevice is returned when no supported GPU sensor is found.
	ErrNoDevice = errors.New("no supported gpu sensor found")
	// ErrBadReading is returned when a sensor value cannot be parsed.
	ErrBadReading = errors.New("unreadable sensor value")
)

// Reading is one sample of the GPU sensors.
type Reading struct {
	// TempC is the temperature driving the fan curve, in degrees Celsius.
	TempC int
	// Edge is the amdgpu edge temperature; zero when unknown.
	Edge float64
	// Junction is the amdgpu junction (hotspot) temperature; zero when unknown.
	Junction float64
	// Memory is the amdgpu memory temperature; zero when unknown.
	Memory float64
	// Fan holds the fan tachometer state when the driver exposes it.
	Fan *FanState
}

// FanState is the fan tachometer of an amdgpu device.
type FanState struct {
	// Current is the current speed in RPM.
	Current int
	// Min is the lowest supported speed in RPM.
	Min int
	// Max is the highest supported speed in RPM.
	Max int
}

// Percent returns the current speed relative to the supported range.
func (f *FanState) Percent() float64 {
	if f == nil || f.Max <= f.Min {
		return 0
	}

	return float64(f.Current-f.Min) / float64(f.Max-f.Min) * 100 //nolint:mnd // Percentage.
}

// Reader samples a GPU.
type Reader interface {
	// Read returns the current sensor values.
	Read(ctx context.Context) (*Reading, error)
	// Vendor names the driver behind the reader.
	Vendor() string
}

// New returns the reader for cfg.Vendor. The auto vendor picks amdgpu when an
// amdgpu hwmon device exists and nvidia otherwise.
func New(ctx context.Context, cfg *config.Config, runner common.CommandRunner) (Reader, error) {
	switch cfg.Vendor {
	case config.VendorNvidia:
		return NewNvidiaReader(runner, cfg.GPUIndex), nil
	case config.VendorAMD:
		return NewAMDReader(cfg.SysRoot)
	case config.VendorAuto, "":
		reader, err := NewAMDReader(cfg.SysRoot)
		if err == nil {
			logger.InfoKV(ctx, "Detected amdgpu device", "hwmon", reader.hwmonDir)

			return reader, nil
		}

		logger.DebugKV(ctx, "No amdgpu device, using nvidia-smi", "error", err)

		return NewNvidiaReader(runner, cfg.GPUIndex), nil
	default:
		return nil, fmt.Errorf("%w: vendor %s", ErrNoDevice, cfg.Vendor)
	}
}
