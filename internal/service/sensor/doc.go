// Package sensor reads GPU temperatures.
//
// NVIDIA cards are queried through nvidia-smi; AMD cards are read from the
// amdgpu hwmon device in sysfs.
package sensor
