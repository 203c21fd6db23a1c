package drive

import "math"

// AllTime selects every sample in a History query
const AllTime = -math.MaxFloat64

type timedValue struct {
	Time  float64
	Value float64
}

// History is a time series of samples in ascending time order
type History struct {
	values []timedValue
}

// AddValue appends a sample; time must not run backwards
func (h *History) AddValue(time, value float64) {
	h.values = append(h.values, timedValue{Time: time, Value: value})
}

// Clear drops samples older than before
func (h *History) Clear(before float64) {
	i := 0
	for i < len(h.values) && h.values[i].Time < before {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(h.values, h.values[i:])
	h.values = h.values[:n]
}

// Reset drops every sample
func (h *History) Reset() {
	h.values = h.values[:0]
}

func (h *History) Len() int { return len(h.values) }

// At returns sample i in time order
func (h *History) At(i int) (time, value float64) {
	v := h.values[i]
	return v.Time, v.Value
}

// TimeRange is the span between the first and last samples
func (h *History) TimeRange() float64 {
	if len(h.values) < 2 {
		return 0
	}
	return h.values[len(h.values)-1].Time - h.values[0].Time
}

func (h *History) LastTime() float64 {
	if len(h.values) == 0 {
		return 0
	}
	return h.values[len(h.values)-1].Time
}

// window returns the samples at or after since
func (h *History) window(since float64) []timedValue {
	for i := len(h.values) - 1; i >= 0; i-- {
		if h.values[i].Time < since {
			return h.values[i+1:]
		}
	}
	return h.values
}

// SumValue totals samples at or after since
func (h *History) SumValue(since float64) float64 {
	sum := 0.0
	for _, v := range h.window(since) {
		sum += v.Value
	}
	return sum
}

// MeanValue averages samples at or after since, zero when none
func (h *History) MeanValue(since float64) float64 {
	w := h.window(since)
	if len(w) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w {
		sum += v.Value
	}
	return sum / float64(len(w))
}

// AbsMeanValue averages the magnitude of samples at or after since
func (h *History) AbsMeanValue(since float64) float64 {
	w := h.window(since)
	if len(w) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w {
		sum += math.Abs(v.Value)
	}
	return sum / float64(len(w))
}
