package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"fuzzyjoin/internal/joiner"
)

// progressBar draws left-side progress on a terminal. A nil bar or a
// disabled one ignores updates.
type progressBar struct {
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, mode string) *progressBar {
	enabled := mode == "always" || (mode == "auto" && isTerminal(w))
	return &progressBar{w: w, enabled: enabled}
}

func (p *progressBar) update(progress joiner.Progress) {
	if p == nil || !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(progress.LeftTotal,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("matching"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Describe(fmt.Sprintf("chunk %d/%d, %s rows", progress.Chunk, progress.Chunks, humanize.Comma(progress.RowsWritten)))
	_ = p.bar.Set(progress.LeftDone)
}

func (p *progressBar) finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
