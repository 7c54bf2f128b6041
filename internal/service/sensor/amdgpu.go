package sensor

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/common"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/logger"
)

const (
	// amdgpuName is the hwmon driver name of AMD GPUs.
	amdgpuName = "amdgpu"

	// Sensor keys reported by gopsutil for amdgpu hwmon labels.
	edgeKey     = "amdgpu_edge"
	junctionKey = "amdgpu_junction"
	memoryKey   = "amdgpu_mem"
)

// TemperatureSource lists hwmon temperatures.
type TemperatureSource func(ctx context.Context) ([]host.TemperatureStat, error)

// AMDReader reads amdgpu temperatures and fan speed from sysfs.
type AMDReader struct {
	// sysRoot is the sysfs mount point.
	sysRoot string
	// hwmonDir is the amdgpu hwmon device directory.
	hwmonDir string
	// temperatures lists hwmon temperatures.
	temperatures TemperatureSource
}

// NewAMDReader locates the amdgpu hwmon device under sysRoot.
func NewAMDReader(sysRoot string) (*AMDReader, error) {
	if sysRoot == "" {
		sysRoot = config.DefaultSysRoot
	}

	hwmonDir, err := FindAMDHwmon(sysRoot)
	if err != nil {
		return nil, err
	}

	return &AMDReader{
		sysRoot:      sysRoot,
		hwmonDir:     hwmonDir,
		temperatures: host.SensorsTemperaturesWithContext,
	}, nil
}

// FindAMDHwmon returns the first hwmon directory whose name contains "amdgpu".
func FindAMDHwmon(sysRoot string) (string, error) {
	dirs, err := filepath.Glob(filepath.Join(sysRoot, "class", "hwmon", "hwmon*"))
	if err != nil {
		return "", fmt.Errorf("list hwmon: %w", err)
	}

	for _, dir := range dirs {
		name, readErr := os.ReadFile(filepath.Join(dir, "name"))
		if readErr != nil {
			continue
		}

		if strings.Contains(strings.TrimSpace(string(name)), amdgpuName) {
			return dir, nil
		}
	}

	return "", fmt.Errorf("%w: no amdgpu hwmon under %s", ErrNoDevice, sysRoot)
}

// Vendor implements Reader.
func (r *AMDReader) Vendor() string {
	return config.VendorAMD
}

// Read implements Reader. The edge temperature drives the curve.
func (r *AMDReader) Read(ctx context.Context) (*Reading, error) {
	sysCtx := context.WithValue(ctx, common.EnvKey, common.EnvMap{common.HostSysEnvKey: r.sysRoot})

	stats, err := r.temperatures(sysCtx)
	if err != nil && len(stats) == 0 {
		return nil, fmt.Errorf("read temperatures: %w", err)
	}

	if err != nil {
		logger.DebugKV(ctx, "Some hwmon sensors were unreadable", "error", err)
	}

	reading := readingFromStats(stats)
	if reading == nil {
		return nil, fmt.Errorf("%w: no amdgpu temperatures reported", ErrBadReading)
	}

	fan, err := readFan(r.hwmonDir)
	if err != nil {
		logger.DebugKV(ctx, "Fan tachometer unavailable", "error", err)
	} else {
		reading.Fan = fan
	}

	return reading, nil
}

// readingFromStats picks the amdgpu edge, junction and memory temperatures.
func readingFromStats(stats []host.TemperatureStat) *Reading {
	var (
		reading Reading
		found   bool
	)

	seen := make(map[string]bool, len(stats))

	for _, stat := range stats {
		if seen[stat.SensorKey] {
			continue
		}

		seen[stat.SensorKey] = true

		switch stat.SensorKey {
		case edgeKey:
			reading.Edge, found = stat.Temperature, true
		case junctionKey:
			reading.Junction = stat.Temperature
		case memoryKey:
			reading.Memory = stat.Temperature
		}
	}

	if !found {
		return nil
	}

	reading.TempC = int(math.Round(reading.Edge))

	return &reading
}

// readFan reads fan1_input, fan1_min and fan1_max.
func readFan(hwmonDir string) (*FanState, error) {
	var (
		values = [3]int{}
		names  = [3]string{"fan1_input", "fan1_min", "fan1_max"}
	)

	for i, name := range names {
		raw, err := os.ReadFile(filepath.Join(hwmonDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadReading, name, err)
		}

		values[i] = value
	}

	return &FanState{Current: values[0], Min: values[1], Max: values[2]}, nil
}
