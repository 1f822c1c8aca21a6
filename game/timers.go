package game

import (
	"time"

	"github.com/RussellLuo/timingwheel"
)

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d on a goroutine it owns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type WheelScheduler struct {
	tw *timingwheel.TimingWheel
}

// NewWheelScheduler needs Start before timers fire.
func NewWheelScheduler(tick time.Duration, wheelSize int64) *WheelScheduler {
	return &WheelScheduler{tw: timingwheel.NewTimingWheel(tick, wheelSize)}
}

func (ws *WheelScheduler) Start() {
	ws.tw.Start()
}

func (ws *WheelScheduler) Stop() {
	ws.tw.Stop()
}

func (ws *WheelScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return ws.tw.AfterFunc(d, f)
}
