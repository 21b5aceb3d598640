// Package core runs the analyses: it loads metadata, drives the algorithms in
// core/algo, dispatches alerts and records each run.
package core

import (
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/metrics"
	"go.uber.org/zap"
)

// Env holds the collaborators of one invocation. It is built by the caller
// and passed explicitly so that nothing in core depends on process-wide state.
type Env struct {
	Logger    *zap.Logger
	Metadata  contract.MetadataSource
	Sink      contract.AlertSink
	Watermark contract.WatermarkSource
	History   contract.HistoryStore // optional
	Metrics   *metrics.Metrics      // optional
	Workers   int
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) workers() int {
	if e.Workers <= 0 {
		return 1
	}
	return e.Workers
}
