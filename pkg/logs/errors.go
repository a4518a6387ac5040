// SPDX-License-Identifier: GPL-3.0-or-later

package logs

import "errors"

var (
	errColumnCount       = errors.New("logs: column count does not match the format")
	errBadNumber         = errors.New("logs: malformed number")
	errBadRequestHeader  = errors.New("logs: request header is not of the form \"METHOD URI VERSION\"")
	errUnterminatedQuote = errors.New("logs: unterminated quoted field")
	errDanglingQuote     = errors.New("logs: closing quote not at end of field")
)
