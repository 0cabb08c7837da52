package s1_indicators

import "math"

// Rolling/recursive primitives over float series.
// 모두 t 시점 값은 인덱스 ≤ t 값만 사용 (lookahead 없음)

// ema returns the exponential moving average with alpha = 2/(span+1),
// seeded with the first value (adjust=false recursion).
func ema(values []float64, span int) []float64 {
	return ewm(values, 2.0/float64(span+1))
}

// ewm is the adjust=false exponential recursion.
// Leading NaN values stay NaN; the recursion starts at the first defined value.
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	started := false
	prev := 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if !started {
			prev = v
			started = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// sma returns the simple moving average over window values including the current one
func sma(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// meanStd returns the rolling mean and population standard deviation (ddof=0)
func meanStd(values []float64, window int) (mean, std []float64) {
	mean = nanSlice(len(values))
	std = nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		m := 0.0
		for _, v := range w {
			m += v
		}
		m /= float64(window)

		ss := 0.0
		for _, v := range w {
			d := v - m
			ss += d * d
		}
		mean[i] = m
		std[i] = math.Sqrt(ss / float64(window))
	}
	return mean, std
}

// rollingExtreme returns the rolling max (or min) over window values.
// excludeCurrent uses the window bars strictly before i.
func rollingExtreme(values []float64, window int, excludeCurrent, wantMax bool) []float64 {
	out := nanSlice(len(values))
	offset := 0
	if excludeCurrent {
		offset = 1
	}
	for i := range values {
		end := i - offset // inclusive
		start := end - window + 1
		if start < 0 {
			continue
		}
		ext := values[start]
		for _, v := range values[start+1 : end+1] {
			if (wantMax && v > ext) || (!wantMax && v < ext) {
				ext = v
			}
		}
		out[i] = ext
	}
	return out
}

// pctChange returns values[i]/values[i-lag] - 1
func pctChange(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		prev := values[i-lag]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(values[i]) {
			continue
		}
		out[i] = values[i]/prev - 1
	}
	return out
}

// diff returns values[i] - values[i-1]
func diff(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// rsiWilder returns RSI with Wilder smoothing (alpha = 1/period)
func rsiWilder(closes []float64, period int) []float64 {
	delta := diff(closes)
	gains := nanSlice(len(closes))
	losses := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		gains[i] = math.Max(delta[i], 0)
		losses[i] = math.Max(-delta[i], 0)
	}

	alpha := 1.0 / float64(period)
	avgGain := ewm(gains, alpha)
	avgLoss := ewm(losses, alpha)

	out := nanSlice(len(closes))
	for i := period; i < len(closes); i++ {
		switch {
		case avgLoss[i] == 0 && avgGain[i] == 0:
			out[i] = 50
		case avgLoss[i] == 0:
			out[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
