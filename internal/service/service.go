package service

import (
	"errors"

	"gorm.io/gorm"

	apperrors "smartdocs/internal/errors"
)

const bcryptCost = 10

// notFoundOr maps a missing row to sentinel and anything else to an upstream failure.
func notFoundOr(err error, sentinel error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return apperrors.Upstream(op, err)
}

// clamp applies def to a zero value and bounds the result to [lo, hi].
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
