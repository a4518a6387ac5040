// SPDX-License-Identifier: GPL-3.0-or-later

package tailer

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowReader struct {
	delay time.Duration
	data  string
	fed   bool
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.fed {
		select {}
	}
	time.Sleep(r.delay)
	r.fed = true
	return copy(p, r.data), nil
}

func TestStreamScenarios(t *testing.T) {
	tests := map[string]struct {
		run func(t *testing.T)
	}{
		"data passes through": {
			run: func(t *testing.T) {
				s := NewStream(strings.NewReader("hello"), time.Second)
				defer s.Close()

				buf := make([]byte, 16)
				n, err := s.Read(buf)
				require.NoError(t, err)
				assert.Equal(t, "hello", string(buf[:n]))
			},
		},
		"end of stream is reported after the data": {
			run: func(t *testing.T) {
				s := NewStream(strings.NewReader("x"), time.Second)
				defer s.Close()

				buf := make([]byte, 16)
				n, err := s.Read(buf)
				require.NoError(t, err)
				require.Equal(t, 1, n)

				_, err = s.Read(buf)
				assert.ErrorIs(t, err, io.EOF)
			},
		},
		"short destination keeps the rest buffered": {
			run: func(t *testing.T) {
				s := NewStream(strings.NewReader("abcdef"), time.Second)
				defer s.Close()

				buf := make([]byte, 4)
				n, err := s.Read(buf)
				require.NoError(t, err)
				assert.Equal(t, "abcd", string(buf[:n]))

				n, err = s.Read(buf)
				require.NoError(t, err)
				assert.Equal(t, "ef", string(buf[:n]))
			},
		},
		"silence crosses the deadline": {
			run: func(t *testing.T) {
				s := NewStream(&slowReader{delay: time.Hour}, 20*time.Millisecond)
				defer s.Close()

				_, err := s.Read(make([]byte, 16))
				assert.ErrorIs(t, err, ErrStarvation)
			},
		},
		"late data survives an earlier starvation": {
			run: func(t *testing.T) {
				s := NewStream(&slowReader{delay: 50 * time.Millisecond, data: "late"}, 10*time.Millisecond)
				defer s.Close()

				buf := make([]byte, 16)
				_, err := s.Read(buf)
				require.ErrorIs(t, err, ErrStarvation)

				time.Sleep(60 * time.Millisecond)
				n, err := s.Read(buf)
				require.NoError(t, err)
				assert.Equal(t, "late", string(buf[:n]))
			},
		},
		"close is idempotent": {
			run: func(t *testing.T) {
				s := NewStream(strings.NewReader(""), time.Second)
				s.Close()
				s.Close()
			},
		},
	}

	for name, test := range tests {
		t.Run(name, test.run)
	}
}
