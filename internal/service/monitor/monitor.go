package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/curve"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/service/fan"
	"github.com/oshokin/gpu-fan-control/internal/service/sensor"
	"github.com/oshokin/gpu-fan-control/internal/ui/display"
)

// restoreTimeout bounds handing the fans back after cancellation.
const restoreTimeout = 10 * time.Second

var errMissingDependency = errors.New("monitor needs a sensor and a fan controller")

// Screen draws frames; nil means headless.
type Screen interface {
	Start()
	Draw(frame *display.Frame) error
	Stop()
}

// Options controls the monitoring loop.
type Options struct {
	// Sensor reads the GPU temperature.
	Sensor sensor.Reader
	// Fan applies fan speeds.
	Fan fan.Controller
	// Screen draws each poll; nil logs readings instead.
	Screen Screen
	// Curve maps temperatures to speeds; empty means the default curve.
	Curve curve.Curve
	// PollInterval is the delay between polls; zero means the default.
	PollInterval time.Duration
	// RequireRoot checks privileges before touching the fans; nil skips the check.
	RequireRoot func() error
}

// monitor holds the state of the loop.
type monitor struct {
	opts      *Options // Inputs of this run.
	lastSpeed int      // Speed applied by the previous poll, -1 before the first.
}

// Run polls until ctx is canceled, then restores automatic fan control.
func Run(ctx context.Context, opts *Options) (err error) {
	ctx = logger.WithName(ctx, "monitor")

	if opts == nil || opts.Sensor == nil || opts.Fan == nil {
		return errMissingDependency
	}

	if opts.RequireRoot != nil {
		if err = opts.RequireRoot(); err != nil {
			return err
		}
	}

	if len(opts.Curve) == 0 {
		opts.Curve = curve.Default()
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}

	if err = opts.Fan.Enable(ctx); err != nil {
		return fmt.Errorf("enable manual fan control: %w", err)
	}

	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		defer cancel()

		if restoreErr := opts.Fan.Restore(restoreCtx); restoreErr != nil {
			logger.ErrorKV(ctx, "Failed to restore automatic fan control", "error", restoreErr)

			err = errors.Join(err, restoreErr)

			return
		}

		logger.Info(ctx, "Restored automatic fan control")
	}()

	if opts.Screen != nil {
		opts.Screen.Start()
		defer opts.Screen.Stop()

		// Info logs would scroll the display away.
		ctx = logger.WithOptions(ctx, logger.WithLevel(zapcore.WarnLevel))
	}

	logger.InfoKV(ctx, "Monitoring GPU", "vendor", opts.Sensor.Vendor(), "interval", opts.PollInterval.String())

	m := &monitor{opts: opts, lastSpeed: -1}

	m.poll(ctx)

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll runs one read-decide-apply-draw cycle. Failures are logged and the next
// poll tries again.
func (m *monitor) poll(ctx context.Context) {
	reading, err := m.opts.Sensor.Read(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Read sensor failed", "error", err)

		return
	}

	speed := m.opts.Curve.Speed(reading.TempC)

	var status string

	if speed == m.lastSpeed {
		status = fmt.Sprintf("Skipped execution as speed has not changed from %d", speed)
	} else {
		if err = m.opts.Fan.SetSpeed(ctx, speed); err != nil {
			logger.ErrorKV(ctx, "Set fan speed failed", "speed", speed, "error", err)

			return
		}

		m.lastSpeed = speed
		status = fmt.Sprintf("Changed speed to %d", speed)
	}

	logger.InfoKV(ctx, status, "temp", reading.TempC, "speed", speed)

	if m.opts.Screen == nil {
		return
	}

	frame := &display.Frame{
		TempC:   reading.TempC,
		Speed:   speed,
		Status:  status,
		Details: details(reading),
	}

	if err = m.opts.Screen.Draw(frame); err != nil {
		logger.WarnKV(ctx, "Draw failed", "error", err)
	}
}

// details renders the extra amdgpu readings.
func details(reading *sensor.Reading) []string {
	var lines []string

	if reading.Junction > 0 {
		lines = append(lines, fmt.Sprintf("Junction temp: %.0f°C", reading.Junction))
	}

	if reading.Memory > 0 {
		lines = append(lines, fmt.Sprintf("Memory temp: %.0f°C", reading.Memory))
	}

	if reading.Fan != nil {
		lines = append(lines, fmt.Sprintf("Fan: %d RPM (%.0f%%)", reading.Fan.Current, reading.Fan.Percent()))
	}

	return lines
}
