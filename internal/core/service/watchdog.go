package service

import "time"

type WatchdogState int

const (
	WATCHDOG_NORMAL WatchdogState = iota
	WATCHDOG_OUTAGE
)

func (s WatchdogState) String() string {
	if s == WATCHDOG_OUTAGE {
		return "outage"
	}
	return "normal"
}

type WatchdogTick struct {
	Elapsed       time.Duration
	State         WatchdogState
	EnteredOutage bool
	Recovered     bool
	ForceZero     bool
	OutageCount   uint64
}

// Watchdog tracks telemetry freshness on the primary channel.
// Between recoverWithin and outageAfter the state is left as it is.
type Watchdog struct {
	outageAfter   time.Duration
	recoverWithin time.Duration
	lastSeen      time.Time
	state         WatchdogState
	outageCount   uint64
}

func NewWatchdog(outageAfter, recoverWithin time.Duration, now time.Time) *Watchdog {
	return &Watchdog{
		outageAfter:   outageAfter,
		recoverWithin: recoverWithin,
		lastSeen:      now,
		state:         WATCHDOG_NORMAL,
	}
}

func (w *Watchdog) Seen(at time.Time) {
	if at.After(w.lastSeen) {
		w.lastSeen = at
	}
}

func (w *Watchdog) Tick(now time.Time) WatchdogTick {
	elapsed := now.Sub(w.lastSeen)
	result := WatchdogTick{Elapsed: elapsed}
	switch {
	case elapsed >= w.outageAfter:
		if w.state == WATCHDOG_NORMAL {
			w.state = WATCHDOG_OUTAGE
			w.outageCount++
			result.EnteredOutage = true
		}
		result.ForceZero = true
	case elapsed <= w.recoverWithin:
		if w.state == WATCHDOG_OUTAGE {
			w.state = WATCHDOG_NORMAL
			result.Recovered = true
		}
	}
	result.State = w.state
	result.OutageCount = w.outageCount
	return result
}

func (w *Watchdog) State() WatchdogState {
	return w.state
}

func (w *Watchdog) OutageCount() uint64 {
	return w.outageCount
}

func (w *Watchdog) LastSeen() time.Time {
	return w.lastSeen
}
