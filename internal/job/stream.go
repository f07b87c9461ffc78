package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrOutputStreamerClosed = errors.New("output streamer is closed")

// OutputStreamer is an io.Writer that collects data written to it and
// fans it out to callers who want to read it as a live stream. It is
// adapted directly from the teacher's lib/job/stream.go, which backed
// a long-lived remote job's stdout/stderr stream; here it backs the
// optional Job.Tail capability (SPEC_FULL.md §2.2) rather than the
// mandatory Progress/Output contract.
//
// When the context passed to NewStream is cancelled, the returned
// channel is closed immediately without emitting any further data.
// After CloseWriter is called, Write returns an error and streams
// close once they've caught up with everything already written.
type OutputStreamer struct {
	output       []byte
	mu           sync.RWMutex
	writerClosed atomic.Bool
	messageSize  int
	length       atomic.Int64
}

func NewOutputStreamer() *OutputStreamer {
	return &OutputStreamer{
		messageSize: 1024,
		output:      make([]byte, 0),
	}
}

func (o *OutputStreamer) Write(b []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.writerClosed.Load() {
		return 0, ErrOutputStreamerClosed
	}
	o.output = append(o.output, b...)
	o.length.Store(int64(len(o.output)))
	return len(b), nil
}

func (o *OutputStreamer) CloseWriter() {
	o.writerClosed.Store(true)
}

// Next returns the next chunk starting at index, at most messageSize
// bytes. The caller must not modify the returned slice.
func (o *OutputStreamer) Next(index int) []byte {
	if int64(index) >= o.length.Load() {
		return nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if index+o.messageSize > len(o.output) {
		return o.output[index:]
	}
	return o.output[index : index+o.messageSize]
}

// NewStream returns a channel receiving every byte written to the
// streamer since its creation, polling at most once a second for new
// data and catching up immediately whenever more arrives.
func (o *OutputStreamer) NewStream(ctx context.Context) <-chan []byte {
	stream := make(chan []byte, 2)

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		index := 0
		for {
			if ctx.Err() != nil {
				close(stream)
				return
			}
			if int64(index) < o.length.Load() {
				msg := o.Next(index)
				index += len(msg)
				select {
				case stream <- msg:
				case <-ctx.Done():
					close(stream)
					return
				}
				continue
			}
			if int64(index) == o.length.Load() && o.writerClosed.Load() {
				close(stream)
				return
			}
			select {
			case <-ctx.Done():
				close(stream)
				return
			case <-ticker.C:
			}
		}
	}()

	return stream
}
