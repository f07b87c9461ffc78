package job

// Event pairs a Progress with the job name it describes. Workers emit
// these onto the shared multi-producer, single-consumer channel that
// feeds the Executor.
type Event struct {
	JobName  string
	Progress Progress
}

func NewEvent(jobName string, p Progress) Event {
	return Event{JobName: jobName, Progress: p}
}

func (e Event) Failed() bool { return e.Progress.Failed() }
