package calculate

import (
	"math"
	"time"

	"volume-tracker/src/helpers"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------

// RollingWindow is the fixed width, in minutes, of rolling correlations.
const RollingWindow = 15

// -----------------------------------------------------------------------------

// Pearson computes the correlation coefficient of two equal-length series.
// Degenerate inputs (fewer than two points, zero variance) yield 0.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	n := float64(len(x))

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := 0; i < len(x); i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	numerator := (n * sumXY) - (sumX * sumY)
	denominator := math.Sqrt(((n * sumX2) - (sumX * sumX)) * ((n * sumY2) - (sumY * sumY)))

	if denominator == 0 {
		return 0
	}

	result := numerator / denominator
	if math.IsNaN(result) {
		return 0
	}

	return result
}

// -----------------------------------------------------------------------------

func priceSeries(dayData []models.MMinute) ([]float64, error) {
	prices := make([]float64, 0, len(dayData))
	for _, m := range dayData {
		if m.Last == nil {
			// A minute with no known price leaves the day series undefined
			return nil, helpers.ErrInsufficientData
		}
		prices = append(prices, *m.Last)
	}
	return prices, nil
}

// -----------------------------------------------------------------------------

// VolumeCorrelation is the whole-day correlation between price and
// cumulative volume. Returns ErrInsufficientData when a series is
// undefined; callers skip persistence for that day/data type.
func VolumeCorrelation(dayData []models.MMinute) (float64, error) {
	prices, err := priceSeries(dayData)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, helpers.ErrInsufficientData
	}

	volumes := make([]float64, 0, len(dayData))
	for _, m := range dayData {
		volumes = append(volumes, m.CumulativeVolume)
	}

	return Pearson(prices, volumes), nil
}

// -----------------------------------------------------------------------------

// SlopeCorrelation is the whole-day correlation between price and
// cumulative slope.
func SlopeCorrelation(dayData []models.MMinute) (float64, error) {
	prices, err := priceSeries(dayData)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, helpers.ErrInsufficientData
	}

	slopes := make([]float64, 0, len(dayData))
	for _, m := range dayData {
		slopes = append(slopes, float64(m.Slope))
	}

	return Pearson(prices, slopes), nil
}

// -----------------------------------------------------------------------------

// UpdateOnline folds one (price, metric) observation into the running
// correlation state. Observations with either value missing are skipped.
// A zero denominator defines r = 0 so the series exists from the first
// observation onward.
func UpdateOnline(corr *models.MCorrelation, x, y *float64) {
	if x == nil || y == nil {
		return
	}

	xMean := corr.XMean + (*x-corr.XMean)/float64(corr.Count+1)
	yMean := corr.YMean + (*y-corr.YMean)/float64(corr.Count+1)

	n := corr.N + (*x-corr.XMean)*(*y-yMean)
	d := corr.D + (*x-corr.XMean)*(*x-xMean)
	e := corr.E + (*y-corr.YMean)*(*y-yMean)

	denominator := math.Sqrt(d) * math.Sqrt(e)
	r := 0.0
	if denominator != 0 {
		r = n / denominator
	}

	corr.XMean = xMean
	corr.YMean = yMean
	corr.N = n
	corr.D = d
	corr.E = e
	corr.Value = r
	corr.Count++
}

// -----------------------------------------------------------------------------

// Rolling computes a fixed-window correlation for the window
// (minute-window, minute]. Undefined unless exactly window minutes are
// present and every one has a price. data may hold more than the window;
// it is filtered by timestamp here. Recomputed per target minute from
// stored history, never incrementally: old values fall out of the window,
// so running sums do not apply.
func Rolling(minute time.Time, data []models.MMinute, dataType string, window int) (float64, error) {
	start := minute.Add(-time.Duration(window) * time.Minute)

	rollingData := make([]models.MMinute, 0, window)
	for _, m := range data {
		if m.Time.After(start) && !m.Time.After(minute) {
			rollingData = append(rollingData, m)
		}
	}

	if len(rollingData) != window {
		return 0, helpers.ErrInsufficientData
	}

	prices, err := priceSeries(rollingData)
	if err != nil {
		return 0, err
	}

	values := make([]float64, 0, window)
	for _, m := range rollingData {
		if dataType == models.DataTypeVolume {
			values = append(values, m.CumulativeVolume)
		} else {
			values = append(values, float64(m.Slope))
		}
	}

	return Pearson(prices, values), nil
}
