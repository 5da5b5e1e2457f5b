package indicators

import (
	"github.com/montanaflynn/stats"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// VolumeBaseline selects the comparison window for relative-volume checks.
// completed holds the post-range bars with the bar under evaluation already
// excluded. With more than three completed bars the window skips the
// volatile first post-range bar and keeps the trailing three; with fewer it
// keeps everything.
func VolumeBaseline(completed []models.Bar) []models.Bar {
	if len(completed) == 0 {
		return nil
	}

	if len(completed) > 3 {
		window := completed[1:]
		if len(window) > 3 {
			window = window[len(window)-3:]
		}
		return window
	}

	return completed
}

// AverageVolume returns the mean volume of the window, or 0 when empty.
func AverageVolume(window []models.Bar) float64 {
	if len(window) == 0 {
		return 0
	}

	volumes := make([]float64, 0, len(window))
	for _, bar := range window {
		volumes = append(volumes, bar.Volume)
	}

	mean, err := stats.Mean(volumes)
	if err != nil {
		return 0
	}

	return mean
}

// RelativeVolume returns bar volume over the baseline average. A zero
// baseline yields 0 so the volume gate fails closed.
func RelativeVolume(bar models.Bar, window []models.Bar) float64 {
	avg := AverageVolume(window)
	if avg <= 0 {
		return 0
	}

	return bar.Volume / avg
}

// MedianVolume returns the median volume of the bars, or 0 when empty. The
// median resists the open-auction volume spike better than the mean.
func MedianVolume(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}

	volumes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		volumes = append(volumes, bar.Volume)
	}

	median, err := stats.Median(volumes)
	if err != nil {
		return 0
	}

	return median
}
