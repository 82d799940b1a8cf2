// Package scoring folds per-bucket qualitative scores into the overall
// assessment score.
package scoring

import (
	"fmt"
	"math"
)

// Bucket weights for a full assessment. These sum to 1.0 and are part of the
// scoring schema: changing them is a contract change, not a tuning knob.
const (
	WeightCommunication = 0.40
	WeightAppearance    = 0.35
	WeightStorytelling  = 0.25
)

// Overall combines the three bucket scores into the weighted overall score,
// rounded half-up to the nearest integer. A bucket score outside [0,100] is
// an upstream parsing bug and is rejected, never clamped.
func Overall(communication, appearance, storytelling float64) (int, error) {
	buckets := map[string]float64{
		"communication": communication,
		"appearance":    appearance,
		"storytelling":  storytelling,
	}
	for name, v := range buckets {
		if v < 0 || v > 100 {
			return 0, fmt.Errorf("%s score %v outside [0,100]", name, v)
		}
	}

	weighted := communication*WeightCommunication +
		appearance*WeightAppearance +
		storytelling*WeightStorytelling
	return roundHalfUp(weighted), nil
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
