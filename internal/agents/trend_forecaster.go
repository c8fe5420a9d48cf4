package agents

import (
	"context"
	"fmt"
	"math"
	"sort"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

// TrendForecaster computes an EWMA over a time-bucketed document-volume
// signal, derives a direction from its slope, and asks the model for 3-5
// evidenced drivers, grounded on the teacher's histogram-bucketing idiom
// (internal/rag/obs/metrics.go, now internal/telemetry/metrics.go) applied
// to daily document counts instead of request latencies.
type TrendForecaster struct{}

func (TrendForecaster) Name() string { return "trend_forecaster" }

const ewmaAlpha = 0.3

var driversSchema = llm.ToolSchema{
	Name:        "trend_drivers_result",
	Description: "Evidenced drivers behind a trend in news coverage",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"drivers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{"type": "string"},
						"evidence_refs": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"article_id": map[string]any{"type": "string"},
									"url":        map[string]any{"type": "string"},
									"date":       map[string]any{"type": "string"},
								},
							},
						},
					},
					"required": []string{"text", "evidence_refs"},
				},
			},
		},
		"required": []string{"drivers"},
	},
}

func (TrendForecaster) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return TrendForecastResult{Direction: "flat"}, nil
	}

	buckets := bucketByDay(in.Docs)
	ewma := computeEWMA(buckets, ewmaAlpha)
	direction, slope := slopeDirection(ewma)
	lo, hi := confidenceInterval(ewma, slope)

	system := "Given the documents below (ordered by date), identify 3 to 5 drivers behind the " +
		"observed trend in coverage volume. Cite the article_id and date for each supporting " +
		"document. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1200, driversSchema, in.Ledger)
	if err != nil {
		return nil, fmt.Errorf("trend_forecaster: %w", err)
	}

	var parsed struct {
		Drivers []TrendDriver `json:"drivers"`
	}
	if err := remarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("trend_forecaster: decode response: %w", err)
	}

	return TrendForecastResult{
		Direction: direction,
		Slope:     slope,
		Drivers:   parsed.Drivers,
		CILow:     lo,
		CIHigh:    hi,
	}, nil
}

// bucketByDay counts documents per UTC calendar day.
func bucketByDay(docs []model.Document) []float64 {
	counts := make(map[string]int)
	for _, d := range docs {
		day := d.PublishedDate
		if len(day) >= 10 {
			day = day[:10]
		}
		counts[day]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = float64(counts[d])
	}
	return out
}

func computeEWMA(signal []float64, alpha float64) []float64 {
	if len(signal) == 0 {
		return nil
	}
	out := make([]float64, len(signal))
	out[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		out[i] = alpha*signal[i] + (1-alpha)*out[i-1]
	}
	return out
}

// slopeDirection compares the EWMA's final value to its first, normalized
// by series length, classifying it as up/flat/down with a small deadband
// around zero.
func slopeDirection(ewma []float64) (string, float64) {
	if len(ewma) < 2 {
		return "flat", 0
	}
	slope := (ewma[len(ewma)-1] - ewma[0]) / float64(len(ewma)-1)
	const deadband = 0.1
	switch {
	case slope > deadband:
		return "up", slope
	case slope < -deadband:
		return "down", slope
	default:
		return "flat", slope
	}
}

// confidenceInterval derives a simple symmetric band around the EWMA's
// final value from the signal's own standard deviation, giving a rough
// but always lo<=hi interval without assuming a parametric model.
func confidenceInterval(ewma []float64, slope float64) (float64, float64) {
	if len(ewma) == 0 {
		return 0, 0
	}
	last := ewma[len(ewma)-1]
	var variance float64
	mean := mean(ewma)
	for _, v := range ewma {
		variance += (v - mean) * (v - mean)
	}
	if len(ewma) > 0 {
		variance /= float64(len(ewma))
	}
	stddev := math.Sqrt(variance)
	lo, hi := last-stddev, last+stddev
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
