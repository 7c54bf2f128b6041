package sensor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
)

// nvidiaSMI is the NVIDIA management tool.
const nvidiaSMI = "nvidia-smi"

// NvidiaReader queries the temperature through nvidia-smi.
type NvidiaReader struct {
	// runner executes nvidia-smi.
	runner common.CommandRunner
	// gpuIndex selects the GPU.
	gpuIndex int
}

// NewNvidiaReader returns a reader for GPU gpuIndex.
func NewNvidiaReader(runner common.CommandRunner, gpuIndex int) *NvidiaReader {
	if runner == nil {
		runner = common.ExecRunner{}
	}

	return &NvidiaReader{
		runner:   runner,
		gpuIndex: gpuIndex,
	}
}

// Vendor implements Reader.
func (r *NvidiaReader) Vendor() string {
	return config.VendorNvidia
}

// Read implements Reader.
func (r *NvidiaReader) Read(ctx context.Context) (*Reading, error) {
	output, err := r.runner.Output(ctx, nvidiaSMI,
		"--query-gpu=temperature.gpu",
		"--format=csv,noheader",
		"-i", strconv.Itoa(r.gpuIndex))
	if err != nil {
		return nil, fmt.Errorf("query temperature: %w", err)
	}

	temp, err := ParseNvidiaTemperature(output)
	if err != nil {
		return nil, err
	}

	return &Reading{TempC: temp}, nil
}

// ParseNvidiaTemperature parses the first line of nvidia-smi CSV output.
func ParseNvidiaTemperature(output []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if !scanner.Scan() {
		return 0, fmt.Errorf("%w: empty nvidia-smi output", ErrBadReading)
	}

	line := strings.TrimSpace(scanner.Text())

	temp, err := strconv.ParseUint(line, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrBadReading, line, err)
	}

	return int(temp), nil
}
