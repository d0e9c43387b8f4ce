package chart

import (
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
)

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// dateAxis formats X as calendar dates, labels tilted like the original charts
func dateAxis(p *plot.Plot) {
	p.X.Tick.Marker = plot.TimeTicks{Format: contracts.DateLayout}
	p.X.Tick.Label.Rotation = math.Pi / 4
}

func timeXYs(dates []time.Time, values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(dates[i].Unix())
		xys[i].Y = v
	}
	return xys
}

func indexXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i + 1)
		xys[i].Y = v
	}
	return xys
}

func addLine(p *plot.Plot, label string, xys plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

func actualVsPredicted(ev *forecast.Evaluation) (*plot.Plot, error) {
	p := newPlot("Actual vs Predicted Stock Prices", "Date", "Stock Price")
	dateAxis(p)

	if err := addLine(p, "Actual", timeXYs(ev.Dates, ev.Actual), colorActual); err != nil {
		return nil, err
	}
	if err := addLine(p, "Predicted", timeXYs(ev.Dates, ev.Predicted), colorPredicted); err != nil {
		return nil, err
	}
	return p, nil
}

func forecastPlot(series contracts.ForecastSeries) (*plot.Plot, error) {
	p := newPlot("Forecasted Stock Prices", "Date", "Stock Price")
	dateAxis(p)

	if err := addLine(p, "Forecast", timeXYs(series.Dates(), series.Prices()), colorForecast); err != nil {
		return nil, err
	}
	return p, nil
}

func lossPlot(h *forecast.LossHistory) (*plot.Plot, error) {
	p := newPlot("Training vs Validation Loss", "Epochs", "Loss")

	if err := addLine(p, "Training Loss", indexXYs(h.Train), colorTrain); err != nil {
		return nil, err
	}
	if len(h.Validation) > 0 {
		if err := addLine(p, "Validation Loss", indexXYs(h.Validation), colorVal); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func residualsPlot(residuals []float64) (*plot.Plot, error) {
	p := newPlot("Residuals (Actual - Predicted)", "Residual Value", "Frequency")
	p.Legend.Top = false

	hist, err := plotter.NewHist(plotter.Values(residuals), histogramBin)
	if err != nil {
		return nil, err
	}
	hist.FillColor = colorResidual
	hist.LineStyle.Color = color.Black
	p.Add(hist)
	return p, nil
}
