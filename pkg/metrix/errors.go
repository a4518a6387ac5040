// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import "errors"

var (
	errEmptyEnvironment   = errors.New("metrix: environment must not be empty")
	errInvalidLabelKey    = errors.New("metrix: invalid label key")
	errReservedLabelKey   = errors.New("metrix: label key \"environment\" is reserved")
	errNegativeCounterAdd = errors.New("metrix: counter Add delta cannot be negative")
	errCounterRegress     = errors.New("metrix: counter Set below current value")
	errInvalidName        = errors.New("metrix: invalid metric family name")
	errReservedSuffix     = errors.New("metrix: metric family name ends in a reserved suffix")
	errNameCollision      = errors.New("metrix: metric family name already registered")
	errHistogramBounds    = errors.New("metrix: histogram bounds must be strictly increasing")
	errBoundsWithoutHisto = errors.New("metrix: bucket bounds are only valid for histogram families")
)
