package cli

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/assetc"
)

// progress renders one progress bar per compile stage.
type progress struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	stage assetc.Stage
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w}
}

// update is an assetc.ProgressFunc. The compiler serializes calls.
func (p *progress) update(stage assetc.Stage, done, total int) {
	if p.bar == nil || stage != p.stage || done == 0 {
		p.close()
		if total == 0 {
			return
		}
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(stage.String()),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progress) close() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
