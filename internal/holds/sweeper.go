package holds

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically returns lapsed holds to Free.
type Sweeper struct {
	auth     Authority
	interval time.Duration
	log      logrus.FieldLogger
	sched    gocron.Scheduler
	after    []func()
}

// NewSweeper prepares a sweeper; call Start to schedule it.
func NewSweeper(auth Authority, interval time.Duration, log logrus.FieldLogger) (*Sweeper, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{auth: auth, interval: interval, log: log, sched: sched}, nil
}

// AfterSweep adds fn to the work run after every sweep, successful or
// not.  Call it before Start.
func (s *Sweeper) AfterSweep(fn func()) {
	s.after = append(s.after, fn)
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	j, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.RunOnce),
		gocron.WithName("seat-hold-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	s.sched.Start()
	s.log.WithFields(logrus.Fields{"job": j.ID().String(), "interval": s.interval.String()}).Info("hold sweeper started")
	return nil
}

// RunOnce performs a single sweep.  Errors are logged, not returned, so
// a failing backend does not unschedule the job.
func (s *Sweeper) RunOnce() {
	defer func() {
		for _, fn := range s.after {
			fn()
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	n, err := s.auth.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Warn("hold sweep failed")
		return
	}
	if n > 0 {
		s.log.WithField("freed", n).Info("lapsed seat holds released")
	}
}

// Stop shuts the scheduler down and waits for a running sweep.
func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}
