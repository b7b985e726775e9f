package delegating

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
)

// Worker is a unit of the Runner. Work does the work pending at the time of
// the call and returns.
type Worker interface {
	Work(ctx context.Context) error
}

// Unit is an independently scheduled Worker.
type Unit struct {
	Name   string
	Every  time.Duration
	Worker Worker
}

// Runner schedules the units with gocron. The units don't call each other,
// they communicate only through the escrow store. A unit never runs
// concurrently with itself.
type Runner struct {
	// OnDone is called after every run of a unit, optional.
	OnDone func(name string, err error)

	cron   *gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	l       sync.Mutex
	stopped bool
	running sync.WaitGroup
}

func NewRunner(units ...Unit) (r *Runner, err error) {
	r = &Runner{cron: gocron.NewScheduler(time.UTC)}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.cron.SingletonModeAll()

	for _, u := range units {
		if u.Every <= 0 {
			return nil, fmt.Errorf("unit %s: interval must be positive", u.Name)
		}
		u := u
		if _, err := r.cron.Every(u.Every).Do(func() { r.run(u) }); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		glog.V(1).Infof("unit %s scheduled every %v", u.Name, u.Every)
	}
	return r, nil
}

// Start starts the scheduling. The first run of every unit is immediate.
func (r *Runner) Start() {
	r.cron.StartAsync()
}

// Stop stops the scheduling and waits for the running units to finish, so
// that no escrow migration is left half done.
func (r *Runner) Stop() {
	r.l.Lock()
	r.stopped = true
	r.l.Unlock()

	r.cron.Stop()
	r.cancel()
	r.running.Wait()
	glog.V(1).Infoln("runner stopped")
}

func (r *Runner) run(u Unit) {
	r.l.Lock()
	if r.stopped {
		r.l.Unlock()
		return
	}
	r.running.Add(1)
	r.l.Unlock()
	defer r.running.Done()

	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unit %s panic: %v", u.Name, rec)
			glog.Errorln(err)
		}
		if r.OnDone != nil {
			r.OnDone(u.Name, err)
		}
	}()

	err = u.Worker.Work(r.ctx)
	if err != nil {
		// faults are logged and the scheduling goes on
		glog.Errorf("unit %s: %v", u.Name, err)
	}
}
