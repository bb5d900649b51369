package main

import "time"

const (
	levelTick            = 100 * time.Millisecond
	silenceWarnAfter     = 8 * time.Second
	silenceAutoStopAfter = 30 * time.Second
	speechLevel          = 0.02 // RMS above this counts as voice
	speechMinRatio       = 0.10
	speechClearRatio     = 0.25 // higher bar to clear than to warn
)

type silenceEvent int

const (
	silenceNone silenceEvent = iota
	silenceWarn
	silenceClear
	silenceRepeat   // toggle mode, every warn interval while still silent
	silenceAutoStop // toggle mode, whole window silent
)

// silenceMonitor keeps a ring of per-tick voice flags for one recording.
type silenceMonitor struct {
	warnTicks int
	window    []bool
	isToggle  func() bool

	ticks    int
	voiced   int
	warned   bool
	lastWarn int
}

func newSilenceMonitor(isToggle func() bool) *silenceMonitor {
	return &silenceMonitor{
		warnTicks: int(silenceWarnAfter / levelTick),
		window:    make([]bool, int(silenceAutoStopAfter/levelTick)),
		isToggle:  isToggle,
	}
}

// ratio is the voiced share of the last n ticks.
func (m *silenceMonitor) ratio(n int) float64 {
	n = min(n, m.ticks)
	if n == 0 {
		return 1
	}
	size := len(m.window)
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+size)%size] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Tick records the peak level of one levelTick interval.
func (m *silenceMonitor) Tick(level float64) silenceEvent {
	size := len(m.window)
	idx := m.ticks % size
	if m.ticks >= size && m.window[idx] {
		m.voiced--
	}
	voice := level >= speechLevel
	m.window[idx] = voice
	if voice {
		m.voiced++
	}
	m.ticks++

	r := m.ratio(m.warnTicks)
	switch {
	case !m.warned && m.ticks >= m.warnTicks && r < speechMinRatio:
		m.warned = true
		m.lastWarn = m.ticks
		return silenceWarn
	case m.warned && r >= speechClearRatio:
		m.warned = false
		return silenceClear
	}

	if !m.isToggle() {
		return silenceNone
	}
	if m.ticks >= size && float64(m.voiced)/float64(size) < speechMinRatio {
		return silenceAutoStop
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnTicks {
		m.lastWarn = m.ticks
		return silenceRepeat
	}
	return silenceNone
}
