// SPDX-License-Identifier: GPL-3.0-or-later

package tailer

import "errors"

// ErrStarvation reports that a tailed stream produced no data within the
// read timeout.
var ErrStarvation = errors.New("tailer: stream starvation")
