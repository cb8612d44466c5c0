package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/investai/internal/models"
)

// GrowthPoint is one date on the history chart.
// Invested is cumulative buy spend; Returned is cumulative sale proceeds and
// cash dividends, plus holdings value on the final point.
type GrowthPoint struct {
	Date     time.Time
	Invested float64
	Returned float64
}

// GrowthSeries builds chart points from dated transactions, one per transaction
// date, closing with a point at asOf that adds the result's current value.
func GrowthSeries(txs models.TransactionList, result *models.HistoryResult, asOf time.Time) []GrowthPoint {
	var (
		points   []GrowthPoint
		invested float64
		returned float64
	)
	for _, tx := range txs.SortedByDate() {
		if !tx.HasDate() {
			continue
		}
		switch {
		case tx.IsBuy():
			invested += tx.TotalAmount
		case tx.IsSell():
			returned += tx.TotalAmount
		case tx.IsDividend() && !tx.AddsShares():
			returned += tx.TotalAmount
		}

		if n := len(points); n > 0 && points[n-1].Date.Equal(tx.Date) {
			points[n-1].Invested = invested
			points[n-1].Returned = returned
			continue
		}
		points = append(points, GrowthPoint{Date: tx.Date, Invested: invested, Returned: returned})
	}

	if result != nil && len(points) > 0 {
		final := GrowthPoint{Date: asOf, Invested: invested, Returned: returned + result.CurrentValue}
		if last := points[len(points)-1]; !asOf.After(last.Date) {
			points[len(points)-1] = GrowthPoint{Date: last.Date, Invested: invested, Returned: final.Returned}
		} else {
			points = append(points, final)
		}
	}
	return points
}

// RenderHistoryChart renders a PNG line chart from growth points.
// Two series: Returned + Value (blue solid) and Total Invested (gray dashed).
// Returns raw PNG bytes.
func RenderHistoryChart(points []GrowthPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	returnedY := make([]float64, len(points))
	investedY := make([]float64, len(points))

	for i, p := range points {
		xValues[i] = p.Date
		returnedY[i] = p.Returned
		investedY[i] = p.Invested
	}

	returnedSeries := chart.TimeSeries{
		Name: "Returned + Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: returnedY,
	}

	investedSeries := chart.TimeSeries{
		Name: "Total Invested",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: investedY,
	}

	graph := chart.Chart{
		Title:  "Investment History",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			returnedSeries,
			investedSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
