// Package chart renders a run's ranking as PNG bar charts.
package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	chartlib "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	appconfig "flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

var (
	barFill     = drawing.Color{R: 66, G: 133, B: 244, A: 255}
	bestFill    = drawing.Color{R: 52, G: 168, B: 83, A: 255}
	savingsFill = drawing.Color{R: 251, G: 188, B: 4, A: 255}
)

// Renderer writes price comparison charts for a finished run.
type Renderer struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewRenderer(cfg *appconfig.Config) *Renderer {
	return &Renderer{config: cfg, log: logger.GetLogger()}
}

// Render writes the price chart and, when statistics are available, the
// savings chart. Rankings with fewer than two entries produce no charts;
// a single bar carries no comparison.
func (r *Renderer) Render(req models.SearchRequest, ranking models.Ranking, summary *models.Summary) ([]string, error) {
	if len(ranking.Entries) < 2 {
		return nil, nil
	}
	if err := os.MkdirAll(r.config.Charts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create charts directory: %w", err)
	}

	route := fmt.Sprintf("%s-%s_%s", req.Origin, req.Destination, req.DepartureDate)
	var paths []string

	pricePath := filepath.Join(r.config.Charts.OutputDir, "prices_"+route+".png")
	if err := r.renderToFile(pricePath, func(w io.Writer) error {
		return r.renderPrices(w, req, ranking)
	}); err != nil {
		return paths, err
	}
	paths = append(paths, pricePath)

	if summary != nil {
		savingsPath := filepath.Join(r.config.Charts.OutputDir, "savings_"+route+".png")
		if err := r.renderToFile(savingsPath, func(w io.Writer) error {
			return r.renderSavings(w, ranking)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, savingsPath)
	}

	r.log.WithComponent("chart").WithFields(logger.Fields{"charts": len(paths)}).Info("charts rendered")
	return paths, nil
}

func (r *Renderer) renderToFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render chart %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// renderPrices draws one bar per country, cheapest first, best highlighted.
func (r *Renderer) renderPrices(w io.Writer, req models.SearchRequest, ranking models.Ranking) error {
	bars := make([]chartlib.Value, 0, len(ranking.Entries))
	for i, entry := range ranking.Entries {
		fill := barFill
		if i == 0 {
			fill = bestFill
		}
		price, _ := entry.Price.Float64()
		bars = append(bars, chartlib.Value{
			Value: price,
			Label: fmt.Sprintf("%s\n%s %s", entry.Country, entry.Price.StringFixed(2), ranking.Currency),
			Style: chartlib.Style{FillColor: fill, StrokeColor: fill},
		})
	}

	graph := chartlib.BarChart{
		Title:    fmt.Sprintf("%s -> %s on %s, cheapest offer per market (%s)", req.Origin, req.Destination, req.DepartureDate, ranking.Currency),
		Width:    max(640, 160*len(bars)),
		Height:   512,
		BarWidth: 80,
		Background: chartlib.Style{
			Padding: chartlib.Box{Top: 48, Bottom: 24},
		},
		Bars: bars,
	}
	return graph.Render(chartlib.PNG, w)
}

// renderSavings draws each market's premium over the cheapest one.
func (r *Renderer) renderSavings(w io.Writer, ranking models.Ranking) error {
	best := ranking.Entries[0].Price

	bars := make([]chartlib.Value, 0, len(ranking.Entries)-1)
	for _, entry := range ranking.Entries[1:] {
		premium, _ := entry.Price.Sub(best).Float64()
		bars = append(bars, chartlib.Value{
			Value: premium,
			Label: fmt.Sprintf("%s\n+%s %s", entry.Country, entry.Price.Sub(best).StringFixed(2), ranking.Currency),
			Style: chartlib.Style{FillColor: savingsFill, StrokeColor: savingsFill},
		})
	}

	graph := chartlib.BarChart{
		Title:    fmt.Sprintf("Premium over %s (%s)", ranking.Entries[0].Country, ranking.Currency),
		Width:    max(640, 160*len(bars)),
		Height:   512,
		BarWidth: 80,
		Background: chartlib.Style{
			Padding: chartlib.Box{Top: 48, Bottom: 24},
		},
		Bars: bars,
	}
	return graph.Render(chartlib.PNG, w)
}
