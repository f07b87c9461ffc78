package display

import "go.uber.org/zap"

// Log routes run snapshots through a structured logger rather than a
// terminal widget, standing in for the real display surface (out of
// scope per spec.md §1) while still giving `forge ci` runnable,
// observable output.
type Log struct {
	log *zap.SugaredLogger
}

func NewLog(log *zap.SugaredLogger) *Log {
	return &Log{log: log}
}

func (l *Log) SetUp(jobNames []string) error {
	l.log.Infow("run set up", "jobs", jobNames)
	return nil
}

func (l *Log) Run(snap Snapshot) error {
	for _, j := range snap.Jobs {
		l.log.Infow("job progress",
			"run_id", snap.RunID,
			"job", j.Name,
			"state", j.Last.Kind(),
			"failed", j.Failed,
			"elapsed", snap.Elapsed,
		)
	}
	return nil
}

func (l *Log) TearDown() error {
	l.log.Infow("run tearing down")
	return nil
}

func (l *Log) Finish(snap Snapshot) error {
	l.log.Infow("run finished",
		"run_id", snap.RunID,
		"elapsed", snap.Elapsed,
		"has_failed", snap.HasFailed,
	)
	return nil
}

func (l *Log) DisplayError(err error) {
	l.log.Errorw("display error", "error", err)
}
