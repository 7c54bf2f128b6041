package curve

// MaxSpeed is the highest fan speed in percent.
const MaxSpeed = 100

// boostThreshold is the temperature from which extra speed is added.
const boostThreshold = 70

// Curve is a list of fan speeds (percent). The entry numerically closest to the
// temperature is selected; ties go to the earlier entry.
type Curve []int

// Default returns the stock speed table.
func Default() Curve {
	return Curve{10, 20, 30, 40, 59, 70, 80, 90, 95, 100}
}

// Speed returns the fan speed for temperature tempC in degrees Celsius.
func (c Curve) Speed(tempC int) int {
	if len(c) == 0 {
		return MaxSpeed
	}

	speed, bestDiff := c[0], distance(c[0], tempC)

	for _, candidate := range c[1:] {
		if diff := distance(candidate, tempC); diff < bestDiff {
			speed, bestDiff = candidate, diff
		}
	}

	return min(speed+Boost(tempC), MaxSpeed)
}

// Boost returns the extra speed added at high temperatures.
func Boost(tempC int) int {
	if tempC < boostThreshold {
		return 0
	}

	switch {
	case tempC <= 71:
		return 2
	case tempC <= 73:
		return 4
	case tempC <= 77:
		return 6
	case tempC <= 79:
		return 3
	case tempC == 80:
		return 5
	case tempC == 81:
		return 10
	case tempC == 82:
		return 12
	case tempC == 83:
		return 14
	case tempC == 84:
		return 16
	default:
		return 15
	}
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}

	return b - a
}
