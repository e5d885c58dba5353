// Package sentiment maintains the process-wide sentiment signal and the
// scheduler that recomputes it from recent posts.
//
// Signal has a single writer (the Refresher) and many readers. Each publish
// swaps in a fully computed, immutable Reading, so readers never observe a
// partially updated value.
package sentiment

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

const (
	MinScore = -100.0
	MaxScore = 100.0
)

var ErrNotFinite = errors.New("sentiment score is not a number")

type Reading struct {
	Value      float64
	ComputedAt time.Time
}

type Signal struct {
	current atomic.Pointer[Reading]
}

// NewSignal returns a signal reading 0 until the first publish.
func NewSignal() *Signal {
	s := &Signal{}
	s.current.Store(&Reading{})
	return s
}

func (s *Signal) Current() Reading {
	return *s.current.Load()
}

func (s *Signal) Value() float64 {
	return s.current.Load().Value
}

// Publish clamps value into [MinScore, MaxScore] and makes it the current reading.
func (s *Signal) Publish(value float64, at time.Time) (Reading, error) {
	if math.IsNaN(value) {
		return s.Current(), ErrNotFinite
	}
	r := &Reading{Value: Clamp(value), ComputedAt: at}
	s.current.Store(r)
	return *r, nil
}

func Clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}
