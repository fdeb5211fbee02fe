package analysis

// Summary condenses one flow series into the figures hydrologists look at
// first.
type Summary struct {
	Peak       float64
	TimeToPeak float64
	Volume     float64
	Mean       float64
}

// Summarize computes the summary of values over the matching time axis.
// Volume integrates by the trapezoid rule.
func Summarize(times, values []float64) Summary {
	var s Summary
	if len(values) == 0 {
		return s
	}
	s.Peak = values[0]
	s.TimeToPeak = times[0]
	total := 0.0
	for i, v := range values {
		total += v
		if v > s.Peak {
			s.Peak = v
			s.TimeToPeak = times[i]
		}
		if i > 0 {
			s.Volume += 0.5 * (values[i] + values[i-1]) * (times[i] - times[i-1])
		}
	}
	s.Mean = total / float64(len(values))
	return s
}
