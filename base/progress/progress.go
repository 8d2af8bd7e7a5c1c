// Copyright 2025 groupmart Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

type Status string

const (
	StatusIdle     Status = "Idle"
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

// Event is a structured progress notification emitted on every stage
// transition of a batch job.
type Event struct {
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker tracks the progress of a single batch job and broadcasts events to
// subscribers. Delivery is best-effort: a slow or absent subscriber never
// blocks the job.
type Tracker struct {
	mu      sync.RWMutex
	status  Status
	current Event
	err     error
	subs    []chan Event
	dropped atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{status: StatusIdle}
}

// Subscribe returns a channel receiving future events. The channel is
// buffered; events overflowing the buffer are dropped.
func (t *Tracker) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	return ch
}

// Reset clears the tracker state for a new run. Subscribers are retained.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.status = StatusRunning
	t.current = Event{}
	t.err = nil
	t.mu.Unlock()
}

// Emit records a stage transition and broadcasts it.
func (t *Tracker) Emit(stage string, percent int, message string) {
	event := Event{
		Stage:     stage,
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now(),
	}
	t.mu.Lock()
	t.current = event
	if t.status == StatusIdle {
		t.status = StatusRunning
	}
	subs := t.subs
	t.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			t.dropped.Inc()
		}
	}
}

// Complete marks the job as finished successfully.
func (t *Tracker) Complete(stage string, message string) {
	t.Emit(stage, 100, message)
	t.mu.Lock()
	t.status = StatusComplete
	t.mu.Unlock()
}

// Fail marks the job as failed and broadcasts the terminal event.
func (t *Tracker) Fail(stage string, err error) {
	t.mu.Lock()
	t.err = err
	percent := t.current.Percent
	t.mu.Unlock()
	event := Event{Stage: stage, Percent: percent, Message: err.Error(), Timestamp: time.Now()}
	t.mu.Lock()
	t.current = event
	t.status = StatusFailed
	subs := t.subs
	t.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			t.dropped.Inc()
		}
	}
}

// Snapshot returns the latest event.
func (t *Tracker) Snapshot() Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Status returns the lifecycle status of the tracked job.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Err returns the recorded error of a failed job.
func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Dropped returns the number of events dropped due to slow subscribers.
func (t *Tracker) Dropped() int64 {
	return t.dropped.Load()
}
