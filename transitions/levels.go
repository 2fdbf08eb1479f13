package transitions

import (
	"math"
	"strconv"

	"bifurcation/models"
)

// LevelOf returns the basin index round(x/π). Ties at odd multiples of π/2 round half to
// even, so 0.5π belongs to level 0, 1.5π to level 2 and -0.5π to level 0.
func LevelOf(x float64) models.Level {
	return roundLevel(x / math.Pi)
}

func roundLevel(ratio float64) models.Level {
	return models.Level(math.RoundToEven(ratio))
}

// LevelTicks returns axis positions kπ for k in [start, stop) with labels "0", "π", "-π", "kπ".
func LevelTicks(start, stop, step int) ([]float64, []string) {
	if step <= 0 || stop <= start {
		return nil, nil
	}
	span := stop - start
	if span <= 0 {
		// stop-start overflowed
		return nil, nil
	}
	n := (span-1)/step + 1
	ticks := make([]float64, 0, n)
	labels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := start + i*step
		ticks = append(ticks, float64(k)*math.Pi)
		labels = append(labels, piLabel(k))
	}
	return ticks, labels
}

func piLabel(k int) string {
	switch k {
	case 0:
		return "0"
	case 1:
		return "π"
	case -1:
		return "-π"
	default:
		return strconv.Itoa(k) + "π"
	}
}
