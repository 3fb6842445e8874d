package settings

import (
	"errors"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/store"
)

const (
	SLAThresholdKey = "sla_threshold_minutes"
	// DefaultSLAThreshold is how long, in minutes, an open conversation may
	// wait for a first response before it is flagged.
	DefaultSLAThreshold = 30
)

var errThreshold = errors.New("threshold must be at least one minute")

// SLAThreshold is the threshold every SLA alerts poller keys on.
func SLAThreshold(db *store.DB, logger *zap.Logger) (*Setting[int], error) {
	s, err := New(db, SLAThresholdKey, DefaultSLAThreshold, IntCodec, logger)
	if err != nil {
		return nil, err
	}
	return s.WithValidate(func(v int) error {
		if v < 1 {
			return errThreshold
		}
		return nil
	}), nil
}
