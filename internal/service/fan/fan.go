package fan

import (
	"context"
	"fmt"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
)

// nvidiaSettings is the NVIDIA X server settings tool.
const nvidiaSettings = "nvidia-settings"

// Controller changes fan speed.
type Controller interface {
	// Enable takes manual control of the fans.
	Enable(ctx context.Context) error
	// SetSpeed sets every fan to percent.
	SetSpeed(ctx context.Context, percent int) error
	// Restore hands fan control back to the driver.
	Restore(ctx context.Context) error
}

// New returns the controller for vendor. Only NVIDIA fans can be driven;
// other vendors get a monitor-only controller.
func New(vendor string, runner common.CommandRunner, gpuIndex, fanCount int) Controller {
	if vendor == config.VendorNvidia {
		return NewNvidiaController(runner, gpuIndex, fanCount)
	}

	return MonitorOnly{}
}

// NvidiaController drives fans with nvidia-settings.
type NvidiaController struct {
	// runner executes nvidia-settings.
	runner common.CommandRunner
	// gpuIndex selects the GPU.
	gpuIndex int
	// fanCount is the number of fans on the card.
	fanCount int
}

// NewNvidiaController returns a controller for fanCount fans of GPU gpuIndex.
func NewNvidiaController(runner common.CommandRunner, gpuIndex, fanCount int) *NvidiaController {
	if runner == nil {
		runner = common.ExecRunner{}
	}

	return &NvidiaController{
		runner:   runner,
		gpuIndex: gpuIndex,
		fanCount: max(fanCount, 1),
	}
}

// Enable implements Controller.
func (c *NvidiaController) Enable(ctx context.Context) error {
	return c.assign(ctx, fmt.Sprintf("[gpu:%d]/GPUFanControlState=1", c.gpuIndex))
}

// SetSpeed implements Controller.
func (c *NvidiaController) SetSpeed(ctx context.Context, percent int) error {
	for fan := range c.fanCount {
		if err := c.assign(ctx, fmt.Sprintf("[fan:%d]/GPUTargetFanSpeed=%d", fan, percent)); err != nil {
			return err
		}
	}

	return nil
}

// Restore implements Controller.
func (c *NvidiaController) Restore(ctx context.Context) error {
	return c.assign(ctx, fmt.Sprintf("[gpu:%d]/GPUFanControlState=0", c.gpuIndex))
}

// assign runs "nvidia-settings -a <attribute>".
func (c *NvidiaController) assign(ctx context.Context, attribute string) error {
	if _, err := c.runner.Output(ctx, nvidiaSettings, "-a", attribute); err != nil {
		return fmt.Errorf("assign %s: %w", attribute, err)
	}

	return nil
}

// MonitorOnly leaves the fans to the driver.
type MonitorOnly struct{}

// Enable implements Controller.
func (MonitorOnly) Enable(ctx context.Context) error {
	logger.Info(ctx, "Fan control is not supported for this vendor, monitoring only")

	return nil
}

// SetSpeed implements Controller.
func (MonitorOnly) SetSpeed(context.Context, int) error {
	return nil
}

// Restore implements Controller.
func (MonitorOnly) Restore(context.Context) error {
	return nil
}
