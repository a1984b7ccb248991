// Package api tests the request completion contract.
// Author: MaybeNext
// License: Apache-2.0

package api

import (
	"sync"
	"testing"
)

// TestRequest_CompletesExactlyOnce races many completers; exactly one
// may win and the stored outcome must be the winner's.
func TestRequest_CompletesExactlyOnce(t *testing.T) {
	req := NewRequest(OpRead, 0, make([]byte, 4))

	var wg sync.WaitGroup
	wins := make(chan int, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if req.Complete(id, nil) {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("%d completions won, want exactly 1", len(winners))
	}
	if n, _ := req.Outcome(); n != winners[0] {
		t.Errorf("outcome = %d, want winner %d", n, winners[0])
	}
}

func TestRequest_CancelRequiresHook(t *testing.T) {
	req := NewRequest(OpWrite, 0, make([]byte, 4))
	if req.Cancel() {
		t.Fatalf("Cancel fired without a hook")
	}

	fired := 0
	req.MarkCancelable(func(*Request) { fired++ })
	if !req.Cancel() {
		t.Fatalf("Cancel did not fire the hook")
	}
	if req.Cancel() {
		t.Fatalf("Cancel fired the hook twice")
	}
	if fired != 1 {
		t.Errorf("hook fired %d times, want 1", fired)
	}
}

func TestRequest_UnmarkPreventsCancel(t *testing.T) {
	req := NewRequest(OpWrite, 0, make([]byte, 4))
	req.MarkCancelable(func(*Request) { t.Errorf("hook fired after unmark") })
	req.UnmarkCancelable()
	if req.Cancel() {
		t.Errorf("Cancel reported a hook after unmark")
	}
}

func TestRequest_WaitReturnsOutcome(t *testing.T) {
	req := NewRequest(OpRead, 0, make([]byte, 8))
	go req.Complete(8, nil)
	n, err := req.Wait()
	if n != 8 || err != nil {
		t.Errorf("Wait = (%d, %v), want (8, nil)", n, err)
	}
}
