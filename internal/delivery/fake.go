package delivery

import (
	"fmt"
	"sync"
)

// FakeChannel is an in-memory Channel for tests. It records every send and
// can be scripted to fail the first N attempts per target.
type FakeChannel struct {
	mu        sync.Mutex
	sends     []FakeSend
	failFirst map[string]int
	failErr   error
	nextID    int
}

// FakeSend is one recorded delivery attempt.
type FakeSend struct {
	Target  string
	Text    string
	Buttons []Button
}

// NewFakeChannel creates an empty fake.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{failFirst: make(map[string]int)}
}

// FailFirst makes the next n sends to target fail with err.
func (f *FakeChannel) FailFirst(target string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFirst[target] = n
	f.failErr = err
}

// Send implements Channel.
func (f *FakeChannel) Send(target, text string, buttons []Button) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sends = append(f.sends, FakeSend{Target: target, Text: text, Buttons: buttons})

	if n := f.failFirst[target]; n > 0 {
		f.failFirst[target] = n - 1
		return Result{}, f.failErr
	}

	f.nextID++
	return Result{MessageID: fmt.Sprintf("msg-%d", f.nextID)}, nil
}

// Sends returns a copy of all recorded attempts.
func (f *FakeChannel) Sends() []FakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeSend, len(f.sends))
	copy(out, f.sends)
	return out
}

// SendCount returns the number of attempts recorded for target.
func (f *FakeChannel) SendCount(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sends {
		if s.Target == target {
			n++
		}
	}
	return n
}
