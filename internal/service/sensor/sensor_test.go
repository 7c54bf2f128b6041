package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpu-fan-control/internal/config"
)

// fakeRunner records the last command and returns a canned result.
type fakeRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args

	return f.output, f.err
}

// newFakeSys builds a sysfs tree with one amdgpu hwmon device and returns its root.
func newFakeSys(t *testing.T, withFan bool) string {
	t.Helper()

	root := t.TempDir()
	other := filepath.Join(root, "class", "hwmon", "hwmon0")
	gpu := filepath.Join(root, "class", "hwmon", "hwmon1")

	files := map[string]string{
		filepath.Join(other, "name"):        "k10temp\n",
		filepath.Join(other, "temp1_input"): "38000\n",
		filepath.Join(gpu, "name"):          "amdgpu\n",
		filepath.Join(gpu, "temp1_input"):   "54000\n",
		filepath.Join(gpu, "temp1_label"):   "edge\n",
		filepath.Join(gpu, "temp2_input"):   "61500\n",
		filepath.Join(gpu, "temp2_label"):   "junction\n",
		filepath.Join(gpu, "temp3_input"):   "58000\n",
		filepath.Join(gpu, "temp3_label"):   "mem\n",
	}

	if withFan {
		files[filepath.Join(gpu, "fan1_input")] = "1500\n"
		files[filepath.Join(gpu, "fan1_min")] = "0\n"
		files[filepath.Join(gpu, "fan1_max")] = "3000\n"
	}

	for path, contents := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return root
}

// TestParseNvidiaTemperature covers valid and malformed nvidia-smi output.
func TestParseNvidiaTemperature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "54\n", want: 54},
		{input: "  47  \n", want: 47},
		{input: "61\n62\n", want: 61},
		{input: "", wantErr: true},
		{input: "N/A\n", wantErr: true},
		{input: "300\n", wantErr: true},
		{input: "-5\n", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseNvidiaTemperature([]byte(tt.input))
		if tt.wantErr {
			require.ErrorIs(t, err, ErrBadReading, tt.input)

			continue
		}

		require.NoError(t, err, tt.input)
		require.Equal(t, tt.want, got)
	}
}

// TestNvidiaReader_Read passes the GPU index and wraps tool failures.
func TestNvidiaReader_Read(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: []byte("66\n")}
	reading, err := NewNvidiaReader(runner, 1).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 66, reading.TempC)
	require.Equal(t, "nvidia-smi", runner.name)
	require.Equal(t, []string{"--query-gpu=temperature.gpu", "--format=csv,noheader", "-i", "1"}, runner.args)

	failing := &fakeRunner{err: errors.New("driver not loaded")}
	_, err = NewNvidiaReader(failing, 0).Read(context.Background())
	require.Error(t, err)
}

// TestFindAMDHwmon skips other hwmon devices.
func TestFindAMDHwmon(t *testing.T) {
	t.Parallel()

	root := newFakeSys(t, false)

	dir, err := FindAMDHwmon(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "class", "hwmon", "hwmon1"), dir)

	_, err = FindAMDHwmon(t.TempDir())
	require.ErrorIs(t, err, ErrNoDevice)
}

// TestAMDReader_Read maps gopsutil sensor keys and the fan tachometer.
func TestAMDReader_Read(t *testing.T) {
	t.Parallel()

	reader, err := NewAMDReader(newFakeSys(t, true))
	require.NoError(t, err)

	reader.temperatures = func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "k10temp", Temperature: 38},
			{SensorKey: edgeKey, Temperature: 54.6},
			{SensorKey: edgeKey, Temperature: 99},
			{SensorKey: junctionKey, Temperature: 61.5},
			{SensorKey: memoryKey, Temperature: 58},
		}, nil
	}

	reading, err := reader.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 55, reading.TempC)
	require.InDelta(t, 54.6, reading.Edge, 0.001)
	require.InDelta(t, 61.5, reading.Junction, 0.001)
	require.InDelta(t, 58, reading.Memory, 0.001)
	require.NotNil(t, reading.Fan)
	require.InDelta(t, 50, reading.Fan.Percent(), 0.001)
}

// TestAMDReader_NoEdge reports ErrBadReading when amdgpu temperatures are missing.
func TestAMDReader_NoEdge(t *testing.T) {
	t.Parallel()

	reader, err := NewAMDReader(newFakeSys(t, false))
	require.NoError(t, err)

	reader.temperatures = func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{{SensorKey: "k10temp", Temperature: 38}}, nil
	}

	_, err = reader.Read(context.Background())
	require.ErrorIs(t, err, ErrBadReading)
}

// TestAMDReader_Sysfs reads the fake tree through gopsutil.
func TestAMDReader_Sysfs(t *testing.T) {
	t.Parallel()

	reader, err := NewAMDReader(newFakeSys(t, false))
	require.NoError(t, err)

	reading, err := reader.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 54, reading.TempC)
	require.Nil(t, reading.Fan)
}

// TestFanState_Percent guards against an empty range.
func TestFanState_Percent(t *testing.T) {
	t.Parallel()

	require.Zero(t, (&FanState{Current: 10, Min: 5, Max: 5}).Percent())
	require.Zero(t, (*FanState)(nil).Percent())
	require.InDelta(t, 25, (&FanState{Current: 1000, Min: 500, Max: 2500}).Percent(), 0.001)
}

// TestNew dispatches on the configured vendor.
func TestNew(t *testing.T) {
	t.Parallel()

	amdRoot := newFakeSys(t, false)

	tests := []struct {
		name       string
		vendor     string
		sysRoot    string
		wantVendor string
		wantErr    bool
	}{
		{name: "nvidia", vendor: config.VendorNvidia, sysRoot: amdRoot, wantVendor: config.VendorNvidia},
		{name: "amdgpu", vendor: config.VendorAMD, sysRoot: amdRoot, wantVendor: config.VendorAMD},
		{name: "amdgpu missing", vendor: config.VendorAMD, sysRoot: t.TempDir(), wantErr: true},
		{name: "auto finds amdgpu", vendor: config.VendorAuto, sysRoot: amdRoot, wantVendor: config.VendorAMD},
		{name: "auto falls back", vendor: config.VendorAuto, sysRoot: t.TempDir(), wantVendor: config.VendorNvidia},
		{name: "unknown", vendor: "intel", sysRoot: amdRoot, wantErr: true},
	}

	for _, tt := range tests {
		cfg := &config.Config{Vendor: tt.vendor, SysRoot: tt.sysRoot}

		reader, err := New(context.Background(), cfg, &fakeRunner{})
		if tt.wantErr {
			require.ErrorIs(t, err, ErrNoDevice, tt.name)

			continue
		}

		require.NoError(t, err, tt.name)
		require.Equal(t, tt.wantVendor, reader.Vendor(), tt.name)
	}
}
