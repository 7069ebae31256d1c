package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/selivandex/market-reporter/internal/pipeline"
)

type stubRunner struct {
	res *pipeline.RunResult
}

func (s stubRunner) Run(ctx context.Context) *pipeline.RunResult { return s.res }

func TestReportWorker(t *testing.T) {
	ctx := context.Background()

	w := NewReportWorker(stubRunner{res: &pipeline.RunResult{Success: true, ReportID: 4}})
	assert.Equal(t, "report_generator", w.Name())
	assert.NoError(t, w.Run(ctx))

	w = NewReportWorker(stubRunner{res: &pipeline.RunResult{Skipped: true, Message: "busy"}})
	assert.NoError(t, w.Run(ctx))

	boom := errors.New("chart_capturing: boom")
	w = NewReportWorker(stubRunner{res: &pipeline.RunResult{Error: boom, State: pipeline.StateFailed}})
	assert.ErrorIs(t, w.Run(ctx), boom)
}
