// SPDX-License-Identifier: GPL-3.0-or-later

package scrapecfg

import "errors"

var (
	errBadFormatEntry    = errors.New("scrapecfg: format entry must be null or a single-key mapping")
	errUnknownColumnType = errors.New("scrapecfg: unknown column type")
	errHistogramOnLabel  = errors.New("scrapecfg: a label column cannot carry a histogram spec")
	errUndefinedSpec     = errors.New("scrapecfg: histogram spec is not defined")
	errReservedLabel     = errors.New("scrapecfg: label name \"environment\" is reserved")
	errBadPrefix         = errors.New("scrapecfg: invalid metric name prefix")
	errBadTTL            = errors.New("scrapecfg: ttl must be positive")
	errBadResilience     = errors.New("scrapecfg: resilience values must not be negative")
	errTargetFile        = errors.New("scrapecfg: target has no file")
	errTargetUser        = errors.New("scrapecfg: target has no user")
	errTargetEnv         = errors.New("scrapecfg: local target has no environment")
)
