package transitions

// Transition Detection
//
// A trajectory sample belongs to level round(x/π). A transition (bifurcation point) is an
// index whose level differs from the level of the previous sample. Two views are produced:
//
//   - markers: one flag per sample, 1 at transitions, marker[0] always 0
//   - gaps: steps elapsed between consecutive transitions, the first gap counted from the
//     start of the sequence; the partial segment after the last transition is dropped

import (
	"bifurcation/models"
)

// MarkTransitions flags every index whose level differs from the previous sample's.
func MarkTransitions(samples []float64) (models.TransitionMarkers, error) {
	if len(samples) == 0 {
		return nil, models.InvalidArgument("no samples provided")
	}

	markers := make(models.TransitionMarkers, len(samples))
	previous := LevelOf(samples[0])
	for i := 1; i < len(samples); i++ {
		level := LevelOf(samples[i])
		if level != previous {
			markers[i] = 1
			previous = level
		}
	}
	return markers, nil
}

// TransitionGaps measures the gaps between transitions. With scale the step counts are
// multiplied by stepSize to give durations; otherwise raw counts are returned.
func TransitionGaps(samples []float64, stepSize float64, scale bool) (models.TransitionGaps, error) {
	if len(samples) == 0 {
		return nil, models.InvalidArgument("no samples provided")
	}

	unit := 1.0
	if scale {
		unit = stepSize
	}

	var gaps models.TransitionGaps
	counter := 0
	previous := LevelOf(samples[0])
	for i := 1; i < len(samples); i++ {
		level := LevelOf(samples[i])
		counter++
		if level != previous {
			gaps = append(gaps, float64(counter)*unit)
			counter = 0
			previous = level
		}
	}
	if gaps == nil {
		gaps = models.TransitionGaps{}
	}
	return gaps, nil
}

// GapsFromMarkers recovers raw step gaps from a persisted marker series.
func GapsFromMarkers(markers []int) ([]int, error) {
	if len(markers) == 0 {
		return nil, models.InvalidArgument("no markers provided")
	}

	c := GapCounter{gaps: make([]int, 0, countOnes(markers))}
	if err := c.Add(markers); err != nil {
		return nil, err
	}
	return c.Gaps(), nil
}

// GapCounter measures gaps over a marker series delivered in pieces. Adding the pieces in
// order yields the gaps GapsFromMarkers reports for their concatenation, while only the
// running count and the gaps found so far are kept.
type GapCounter struct {
	seen    int
	counter int
	gaps    []int
}

// Add consumes the next piece of the series.
func (c *GapCounter) Add(markers []int) error {
	for _, m := range markers {
		i := c.seen
		c.seen++
		if i == 0 {
			continue
		}
		c.counter++
		switch m {
		case 0:
		case 1:
			c.gaps = append(c.gaps, c.counter)
			c.counter = 0
		default:
			return models.InvalidArgument("marker %d has value %d, expected 0 or 1", i, m)
		}
	}
	return nil
}

// Gaps returns the gaps closed so far. The run since the last transition is not included.
func (c *GapCounter) Gaps() []int {
	return c.gaps
}

func countOnes(markers []int) int {
	n := 0
	for _, m := range markers {
		if m == 1 {
			n++
		}
	}
	return n
}
