// SPDX-License-Identifier: GPL-3.0-or-later

package tailer

import (
	"io"
	"sync"
	"time"
)

// Stream bounds a blocking reader with an inter-read deadline. A pump
// goroutine performs the blocking reads so that Read can give up without
// abandoning buffered data; a partial buffer is held for the next Read
// instead of being reported as end-of-stream.
type Stream struct {
	timeout time.Duration

	data chan []byte
	errc chan error
	buf  []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewStream(r io.Reader, timeout time.Duration) *Stream {
	s := &Stream{
		timeout: timeout,
		data:    make(chan []byte),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *Stream) pump(r io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			select {
			case s.data <- b:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.errc <- err
			return
		}
	}
}

// Read returns buffered data, or waits for the pump up to the deadline.
// Crossing the deadline yields ErrStarvation.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.buf) > 0 {
		n := copy(p, s.buf)
		s.buf = s.buf[n:]
		return n, nil
	}

	tm := time.NewTimer(s.timeout)
	defer tm.Stop()

	select {
	case b := <-s.data:
		n := copy(p, b)
		s.buf = b[n:]
		return n, nil
	case err := <-s.errc:
		return 0, err
	case <-tm.C:
		return 0, ErrStarvation
	}
}

// Close releases the pump goroutine. The underlying reader must be closed
// by its owner to unblock a pending read.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
