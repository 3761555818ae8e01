package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio is an immutable sampling setting; a zero ratio lets everything through.
type ratio struct {
	num, den uint64
}

// ratioSampler admits num out of every den events, the first num of each window.
type ratioSampler struct {
	cfg   atomic.Pointer[ratio]
	count atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the window. Non-positive values disable sampling.
func (s *ratioSampler) Set(num, den int) {
	r := &ratio{}
	if num > 0 && den > 0 {
		r.num, r.den = uint64(min(num, den)), uint64(den)
	}
	s.cfg.Store(r)
	s.count.Store(0)
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	r := s.cfg.Load()
	if r == nil || r.den == 0 {
		return true
	}
	n := s.count.Add(1) - 1
	return n%r.den < r.num
}

// parseRatioSpec reads "n/d", or "d" meaning 1/d. Anything unparseable or non-positive
// yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if n, d, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(spec)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
