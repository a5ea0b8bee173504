package features

import "math"

// SMA returns the simple moving average of the last period values, or 0 when
// there is not enough data.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// RSI computes the Relative Strength Index over the last period moves.
// Returns 50 (neutral) when there is not enough data.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	var gain, loss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// BollingerBands returns the upper, middle, and lower bands over the last
// period values with the given standard deviation multiplier.
func BollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if period <= 1 || len(prices) < period {
		return 0, 0, 0
	}
	middle = SMA(prices, period)
	var sum2 float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - middle
		sum2 += d * d
	}
	sd := math.Sqrt(sum2 / float64(period))
	return middle + stdDev*sd, middle, middle - stdDev*sd
}
