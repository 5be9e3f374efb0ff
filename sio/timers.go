/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorhill/cronexpr"
)

// Timer represents a pending timer.
//
// A Timer with a Cron expression is rescheduled after it fires.
type Timer struct {
	Id   string      `json:"id"`
	Msg  interface{} `json:"msg"`
	At   time.Time   `json:"at"`
	Cron string      `json:"cron,omitempty"`

	expr *cronexpr.Expression
	ctl  chan bool
}

// Timers represents pending timers.
type Timers struct {
	Map     map[string]*Timer
	Emitter func(context.Context, *Timer) `json:"-"`

	// Now is the clock.  Nil means time.Now.
	Now func() time.Time `json:"-"`

	sync.Mutex

	wg sync.WaitGroup
}

// NewTimers creates a Timers with the given function that the Timers
// will use to emit their messages.
func NewTimers(emitter func(context.Context, *Timer)) *Timers {
	return &Timers{
		Map:     make(map[string]*Timer, 8),
		Emitter: emitter,
	}
}

// HostEmitter returns an emitter that posts Timer messages to the
// Host.
func HostEmitter(h *Host) func(context.Context, *Timer) {
	return func(ctx context.Context, t *Timer) {
		glog.V(1).Infof("queuing timed message: %s", JShort(t.Msg))
		h.Post(ctx, t.Msg)
	}
}

func (ts *Timers) now() time.Time {
	if ts.Now != nil {
		return ts.Now()
	}
	return time.Now()
}

func (ts *Timers) add(ctx context.Context, t *Timer) {
	if old, have := ts.Map[t.Id]; have {
		close(old.ctl)
	}
	ts.Map[t.Id] = t

	ts.wg.Add(1)
	go ts.run(ctx, t)
}

// Add creates a new Timer that will emit the given message later (if
// the timer isn't cancelled first).  An existing Timer with the same
// id is replaced.
func (ts *Timers) Add(ctx context.Context, id string, msg interface{}, d time.Duration) error {
	glog.V(1).Infof("Timers.Add %s %v", id, d)

	ts.Lock()
	ts.add(ctx, &Timer{
		Id:  id,
		At:  ts.now().UTC().Add(d),
		Msg: msg,
		ctl: make(chan bool),
	})
	ts.Unlock()

	return nil
}

// AddCron creates a Timer that emits the given message on the cron
// schedule.
func (ts *Timers) AddCron(ctx context.Context, id string, cron string, msg interface{}) error {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return err
	}
	at := expr.Next(ts.now())
	if at.IsZero() {
		return fmt.Errorf("cron schedule %q never fires", cron)
	}

	glog.V(1).Infof("Timers.AddCron %s %q next %s", id, cron, at)

	ts.Lock()
	ts.add(ctx, &Timer{
		Id:   id,
		At:   at,
		Msg:  msg,
		Cron: cron,
		expr: expr,
		ctl:  make(chan bool),
	})
	ts.Unlock()

	return nil
}

// run executes the Timer at the appointed time(s) unless the Timer is
// cancelled first.
func (ts *Timers) run(ctx context.Context, t *Timer) {
	defer ts.wg.Done()
	for {
		timer := time.NewTimer(t.At.Sub(ts.now()))
		select {
		case <-timer.C:
		case <-t.ctl:
			timer.Stop()
			glog.V(1).Infof("canceled timer %s", t.Id)
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}

		glog.V(1).Infof("firing timer %s", t.Id)
		ts.Emitter(ctx, t)

		ts.Lock()
		if t.expr != nil {
			if next := t.expr.Next(ts.now()); !next.IsZero() {
				t.At = next
				ts.Unlock()
				continue
			}
		}
		if ts.Map[t.Id] == t {
			delete(ts.Map, t.Id)
		}
		ts.Unlock()
		return
	}
}

// Cancel attempts to cancel the timer with the given id.
func (ts *Timers) Cancel(ctx context.Context, id string) error {
	ts.Lock()
	defer ts.Unlock()

	t, have := ts.Map[id]
	if !have {
		return fmt.Errorf("timer '%s' doesn't exist", id)
	}
	delete(ts.Map, id)
	close(t.ctl)

	return nil
}

// Pending returns the sorted ids of the pending timers.
func (ts *Timers) Pending() []string {
	ts.Lock()
	defer ts.Unlock()
	acc := make([]string, 0, len(ts.Map))
	for id := range ts.Map {
		acc = append(acc, id)
	}
	sort.Strings(acc)
	return acc
}

// Wait blocks until every timer goroutine has returned.
func (ts *Timers) Wait() {
	ts.wg.Wait()
}
