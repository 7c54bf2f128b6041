// Package monitor polls the GPU temperature and drives the fans.
//
// Each poll reads the sensor, looks the speed up on the fan curve, applies it
// only when it changed and draws the result. On exit the fans are handed back
// to the driver and the terminal cursor is restored.
package monitor
