// Package chart renders forecast diagnostics as PNG files with gonum/plot.
// 파일명은 <runID>_<graph key>.png, 요청 간 충돌 없음
package chart

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
)

// Graph kinds. The response key is "<kind>_<model>".
const (
	KindActualVsPredicted = "actual_vs_predicted"
	KindForecast          = "forecasted_prices"
	KindLoss              = "training_vs_validation_loss"
	KindResiduals         = "residuals_histogram"
)

const (
	width        = 10 * vg.Inch
	height       = 6 * vg.Inch
	histogramBin = 20
	fileExt      = ".png"
)

var (
	// ErrInvalidName rejects artifact names that could escape the output directory
	ErrInvalidName = errors.New("invalid graph name")

	colorActual    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorPredicted = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorForecast  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorTrain     = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorVal       = color.RGBA{R: 148, G: 103, B: 189, A: 255}
	colorResidual  = color.RGBA{R: 153, G: 50, B: 204, A: 255}
)

// Renderer writes chart artifacts into one directory
// ⭐ SSOT: 그래프 파일 생성/조회/정리는 여기서만
type Renderer struct {
	dir string
	log zerolog.Logger
}

// New creates the output directory if needed
func New(dir string, log zerolog.Logger) (*Renderer, error) {
	if dir == "" {
		return nil, fmt.Errorf("graphs dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create graphs dir: %w", err)
	}
	return &Renderer{dir: dir, log: log}, nil
}

// Dir returns the output directory
func (r *Renderer) Dir() string {
	return r.dir
}

// Render implements forecast.Charter
func (r *Renderer) Render(ctx context.Context, handle forecast.OutputHandle, set forecast.ChartSet) (map[string]string, error) {
	if err := validRunID(handle.RunID); err != nil {
		return nil, err
	}

	jobs := r.plan(set)
	graphs := make(map[string]string, len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := job.kind + "_" + string(set.Model)
		name := handle.RunID + "_" + key + fileExt

		p, err := job.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := r.save(p, name); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		graphs[key] = name
	}

	r.log.Debug().
		Str("run_id", handle.RunID).
		Str("model", string(set.Model)).
		Int("graphs", len(graphs)).
		Msg("charts rendered")

	return graphs, nil
}

type plotJob struct {
	kind  string
	build func() (*plot.Plot, error)
}

// plan picks the graphs a section gets; the hybrid only has a forecast
func (r *Renderer) plan(set forecast.ChartSet) []plotJob {
	var jobs []plotJob

	if ev := set.Evaluation; ev != nil && len(ev.Actual) > 0 {
		jobs = append(jobs, plotJob{KindActualVsPredicted, func() (*plot.Plot, error) {
			return actualVsPredicted(ev)
		}})
	}

	jobs = append(jobs, plotJob{KindForecast, func() (*plot.Plot, error) {
		return forecastPlot(set.Forecast)
	}})

	if set.Model == contracts.ModelHybrid {
		return jobs
	}

	if set.Losses != nil && len(set.Losses.Train) > 0 {
		jobs = append(jobs, plotJob{KindLoss, func() (*plot.Plot, error) {
			return lossPlot(set.Losses)
		}})
	}

	if ev := set.Evaluation; ev != nil && len(ev.Residuals) > 0 {
		jobs = append(jobs, plotJob{KindResiduals, func() (*plot.Plot, error) {
			return residualsPlot(ev.Residuals)
		}})
	}

	return jobs
}

// save writes to a temp file then renames, so /graph never serves a partial PNG
func (r *Renderer) save(p *plot.Plot, name string) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".chart-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := wt.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}

	return os.Rename(tmp.Name(), filepath.Join(r.dir, name))
}

// Path resolves an artifact name to its file, rejecting anything but a bare PNG file name
func (r *Renderer) Path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") ||
		!strings.HasSuffix(name, fileExt) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("graph %s: %w", name, contracts.ErrNotFound)
	}
	return path, nil
}

// Prune deletes chart files last modified before now - retention
func (r *Renderer) Prune(now time.Time, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("read graphs dir: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				r.log.Warn().Err(err).Str("file", e.Name()).Msg("remove chart failed")
				continue
			}
			removed++
		}
	}

	return removed, nil
}

func validRunID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return fmt.Errorf("run id %q: %w", id, ErrInvalidName)
	}
	return nil
}
