package bridge

import (
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultFeatureIDPrefix is used when SequenceIDs.Prefix is empty.
const DefaultFeatureIDPrefix = "qt-point"

// FeatureIDSource hands out feature ids for plot requests.
type FeatureIDSource interface {
	NextFeatureID() string
}

// SequenceIDs produces ids of the form qt-point-<unix millis>-<seq>. The sequence
// is shared by every caller of the same SequenceIDs and only grows, so ids
// stay unique even when several are issued within one millisecond.
type SequenceIDs struct {
	Prefix string
	Now    func() time.Time

	seq atomic.Uint64
}

func (s *SequenceIDs) NextFeatureID() string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultFeatureIDPrefix
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return fmt.Sprintf("%s-%d-%d", prefix, now().UnixMilli(), s.seq.Add(1))
}

var defaultIDs = &SequenceIDs{}
