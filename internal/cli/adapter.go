package cli

import "pcompress/internal/controller"

// reporterAdapter satisfies controller.ProgressReporter on top of Reporter,
// triggering a terminal redraw (Reporter.Update) on every status/progress
// change instead of leaving the caller to remember to call it — mirroring
// how volume.OperationContext.UpdateProgress bundled the same two steps for
// the teacher's phase functions.
type reporterAdapter struct {
	*Reporter
}

func newReporterAdapter(r *Reporter) controller.ProgressReporter {
	return reporterAdapter{Reporter: r}
}

func (a reporterAdapter) SetStatus(text string) {
	a.Reporter.SetStatus(text)
	a.Reporter.Update()
}

func (a reporterAdapter) SetProgress(fraction float32, info string) {
	a.Reporter.SetProgress(fraction, info)
	a.Reporter.Update()
}
