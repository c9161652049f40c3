// Package report renders static plots of recorded sessions.
package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/proximity.report/internal/db"
)

// WritePNG renders a session's readings as a PNG time-series plot. The
// normalized signal is always drawn; calibrated distance gets its own line
// when any reading carries one.
func WritePNG(w io.Writer, session *db.Session, readings []db.Reading) error {
	if len(readings) == 0 {
		return fmt.Errorf("session %s has no readings to plot", session.ID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s", session.Name)
	p.X.Label.Text = "Seconds since start"
	p.Y.Label.Text = "Value"

	normPts := make(plotter.XYs, 0, len(readings))
	distPts := make(plotter.XYs, 0, len(readings))
	for _, r := range readings {
		x := r.RecordedAt.Sub(session.StartedAt).Seconds()
		normPts = append(normPts, plotter.XY{X: x, Y: r.Normalized})
		if r.Distance != nil {
			distPts = append(distPts, plotter.XY{X: x, Y: *r.Distance})
		}
	}

	normLine, err := plotter.NewLine(normPts)
	if err != nil {
		return err
	}
	normLine.Width = vg.Points(1)
	p.Add(normLine)
	p.Legend.Add("normalized", normLine)

	if len(distPts) > 0 {
		distLine, err := plotter.NewLine(distPts)
		if err != nil {
			return err
		}
		distLine.Width = vg.Points(1)
		distLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(distLine)
		p.Legend.Add("distance", distLine)
	}

	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
