package hook

import (
	"sync"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/robfig/cron/v3"
)

var schedLog = logger.New("hook:scheduler")

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler drives a hook's timer-* triggers. timer-hourly and
// timer-daily register on a shared 6-field (seconds-enabled) cron.Cron;
// timer-Nms triggers run on a plain time.Ticker since cron's own
// granularity is coarser than sub-second.
type Scheduler struct {
	cron     *cron.Cron
	fire     func(h *Hook)
	mu       sync.Mutex
	entryIDs map[string][]cron.EntryID
	tickers  []*time.Ticker
	stopCh   chan struct{}
}

// NewScheduler builds a Scheduler that invokes fire whenever one of a
// registered hook's timer triggers elapses. fire must not block.
func NewScheduler(fire func(h *Hook)) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithParser(cronParser)),
		fire:     fire,
		entryIDs: make(map[string][]cron.EntryID),
		stopCh:   make(chan struct{}),
	}
}

// Register schedules every timer-* trigger on h. A malformed timer
// string is logged and skipped rather than failing registration of the
// hook's other triggers.
func (s *Scheduler) Register(h *Hook) {
	for _, raw := range h.Timers {
		t, err := ParseTimer(raw)
		if err != nil {
			schedLog.Printf("skipping timer trigger on %s: %v", h.IRI, err)
			continue
		}
		if t.Kind == TimerInterval {
			s.registerTicker(h, t.Period)
			continue
		}
		expr := CronExpr(h.IRI, t)
		sched, err := cronParser.Parse(expr)
		if err != nil {
			schedLog.Printf("parse cron expr %q for %s: %v", expr, h.IRI, err)
			continue
		}
		id := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(h) }))
		s.mu.Lock()
		s.entryIDs[h.IRI] = append(s.entryIDs[h.IRI], id)
		s.mu.Unlock()
		schedLog.Printf("registered %s on %s (%s)", h.IRI, raw, expr)
	}
}

func (s *Scheduler) registerTicker(h *Hook, period time.Duration) {
	ticker := time.NewTicker(period)
	s.mu.Lock()
	s.tickers = append(s.tickers, ticker)
	s.mu.Unlock()
	go func() {
		for {
			select {
			case <-ticker.C:
				s.fire(h)
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Start begins the cron scheduler's background goroutine. Ticker
// triggers run as soon as Register is called, independent of Start.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts every cron entry and ticker goroutine, blocking until any
// in-flight cron job finishes.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.mu.Lock()
	for _, t := range s.tickers {
		t.Stop()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}
