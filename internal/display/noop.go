package display

// Noop discards every call. Used by tests, by engine.New when it is
// given a nil Sink, and by `forge ci --quiet`.
type Noop struct{}

func (Noop) SetUp([]string) error  { return nil }
func (Noop) Run(Snapshot) error    { return nil }
func (Noop) TearDown() error       { return nil }
func (Noop) Finish(Snapshot) error { return nil }
func (Noop) DisplayError(error)    {}
