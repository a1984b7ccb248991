// Package engine tests the DMA transaction lifecycle.
// Author: MaybeNext
// License: Apache-2.0

package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/mmio"
)

// stubBackend simulates hardware: it retires every descriptor after a
// fixed delay unless stopped first.
type stubBackend struct {
	delay    time.Duration
	fault    uint32
	startErr error

	stopped atomic.Bool
	starts  atomic.Int32
}

func (b *stubBackend) Start(e *Engine, tx *Transaction) error {
	if b.startErr != nil {
		return b.startErr
	}
	b.starts.Add(1)
	go func() {
		if b.delay > 0 {
			time.Sleep(b.delay)
		}
		if b.stopped.Load() {
			return
		}
		var bytes uint64
		for _, d := range tx.Descriptors() {
			bytes += uint64(d.Len)
		}
		tx.PostProgress(uint32(len(tx.Descriptors())), bytes, b.fault)
		if !e.Poll() {
			e.ServiceInterrupt()
		}
	}()
	return nil
}

func (b *stubBackend) Stop(*Engine) { b.stopped.Store(true) }

func newTestEngine(t *testing.T, enabled, poll bool, backend Backend) *Engine {
	t.Helper()
	regs := mmio.NewSimRegion(RegBlockLen)
	e := New(Config{
		Dir:          api.DirH2C,
		Channel:      0,
		Mode:         api.ModeStandard,
		Enabled:      enabled,
		Regs:         regs.Bytes(),
		Backend:      backend,
		PollInterval: 10 * time.Microsecond,
	})
	e.SetPoll(poll)
	return e
}

func TestSubmit_DisabledEngine(t *testing.T) {
	e := newTestEngine(t, false, true, &stubBackend{})
	req := api.NewRequest(api.OpWrite, 0, make([]byte, 4096))

	err := e.Submit(req)
	if !errors.Is(err, api.ErrDeviceNotReady) {
		t.Fatalf("Submit on disabled engine = %v, want ErrDeviceNotReady", err)
	}
	if _, rerr := req.Wait(); !errors.Is(rerr, api.ErrDeviceNotReady) {
		t.Errorf("request outcome = %v, want ErrDeviceNotReady", rerr)
	}
	if e.cur.Load() != nil {
		t.Errorf("transaction created on disabled engine")
	}
}

func TestSubmit_PollModeCompletesInline(t *testing.T) {
	e := newTestEngine(t, true, true, &stubBackend{delay: time.Millisecond})
	req := api.NewRequest(api.OpWrite, 0x100, make([]byte, 3*MaxDescLen))

	if err := e.Submit(req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-req.Done():
	default:
		t.Fatalf("poll-mode Submit returned before completion")
	}
	n, err := req.Outcome()
	if err != nil {
		t.Fatalf("outcome: %v", err)
	}
	if n != 3*MaxDescLen {
		t.Errorf("bytes = %d, want %d", n, 3*MaxDescLen)
	}
	if e.cur.Load() != nil {
		t.Errorf("transaction slot not released")
	}
	if got := mmio.ReadU32(e.regs, RegDescDone); got != 3 {
		t.Errorf("descriptor writeback mirror = %d, want 3", got)
	}
}

func TestSubmit_InterruptModeCompletesAsync(t *testing.T) {
	e := newTestEngine(t, true, false, &stubBackend{delay: 5 * time.Millisecond})
	req := api.NewRequest(api.OpWrite, 0, make([]byte, 512))

	if err := e.Submit(req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-req.Done():
		t.Fatalf("interrupt-mode Submit completed synchronously")
	default:
	}
	n, err := req.Wait()
	if err != nil || n != 512 {
		t.Fatalf("outcome = (%d, %v), want (512, nil)", n, err)
	}
}

func TestSubmit_ZeroLengthFailsBeforeHardware(t *testing.T) {
	b := &stubBackend{}
	e := newTestEngine(t, true, true, b)
	req := api.NewRequest(api.OpWrite, 0, nil)

	err := e.Submit(req)
	if !errors.Is(err, api.ErrTransactionFailure) {
		t.Fatalf("Submit = %v, want ErrTransactionFailure", err)
	}
	if b.starts.Load() != 0 {
		t.Errorf("hardware started for a failed setup")
	}
	if e.cur.Load() != nil {
		t.Errorf("transaction leaked on setup failure")
	}
}

func TestSubmit_ExecuteFailureReleases(t *testing.T) {
	e := newTestEngine(t, true, true, &stubBackend{startErr: errors.New("link down")})
	req := api.NewRequest(api.OpWrite, 0, make([]byte, 64))

	if err := e.Submit(req); err == nil {
		t.Fatalf("Submit succeeded with a failing backend")
	}
	if _, err := req.Wait(); err == nil {
		t.Fatalf("request completed without error")
	}
	if e.cur.Load() != nil {
		t.Errorf("transaction leaked on execute failure")
	}
}

func TestSubmit_HardwareFault(t *testing.T) {
	e := newTestEngine(t, true, true, &stubBackend{fault: 0x2})
	req := api.NewRequest(api.OpWrite, 0, make([]byte, 64))

	e.Submit(req)
	if _, err := req.Outcome(); !errors.Is(err, api.ErrTransactionFailure) {
		t.Fatalf("outcome = %v, want ErrTransactionFailure", err)
	}
}

func TestSubmit_SecondWhileExecutingRejected(t *testing.T) {
	e := newTestEngine(t, true, false, &stubBackend{delay: 20 * time.Millisecond})
	first := api.NewRequest(api.OpWrite, 0, make([]byte, 64))
	if err := e.Submit(first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second := api.NewRequest(api.OpWrite, 0, make([]byte, 64))
	if err := e.Submit(second); !errors.Is(err, api.ErrDeviceNotReady) {
		t.Fatalf("second Submit = %v, want ErrDeviceNotReady", err)
	}
	if n, err := first.Wait(); err != nil || n != 64 {
		t.Errorf("first transfer disturbed: (%d, %v)", n, err)
	}
}

func TestCancel_BeforeCompletion(t *testing.T) {
	e := newTestEngine(t, true, false, &stubBackend{delay: 50 * time.Millisecond})
	req := api.NewRequest(api.OpWrite, 0, make([]byte, 4096))

	if err := e.Submit(req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !req.Cancel() {
		t.Fatalf("Cancel found no hook installed")
	}
	n, err := req.Wait()
	if !errors.Is(err, api.ErrCancelled) {
		t.Fatalf("outcome = %v, want ErrCancelled", err)
	}
	if n != 0 {
		t.Errorf("cancelled transfer reported %d bytes", n)
	}
	if e.cur.Load() != nil {
		t.Errorf("transaction not released after cancel")
	}

	// engine must accept a fresh submission after a cancel
	next := api.NewRequest(api.OpWrite, 0, make([]byte, 64))
	e2 := &stubBackend{}
	e.backend = e2
	if err := e.Submit(next); err != nil {
		t.Fatalf("Submit after cancel: %v", err)
	}
	next.Wait()
}

// TestCancelCompletionRace races client cancellation against hardware
// completion over many rounds: every round must produce exactly one
// terminal outcome and leave the engine idle.
func TestCancelCompletionRace(t *testing.T) {
	for i := 0; i < 200; i++ {
		b := &stubBackend{}
		e := newTestEngine(t, true, false, b)
		req := api.NewRequest(api.OpWrite, 0, make([]byte, 256))

		if err := e.Submit(req); err != nil {
			t.Fatalf("round %d Submit: %v", i, err)
		}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			req.Cancel()
		}()
		n, err := req.Wait()
		wg.Wait()

		switch {
		case err == nil:
			if n != 256 {
				t.Fatalf("round %d completed with %d bytes", i, n)
			}
		case errors.Is(err, api.ErrCancelled):
			if n != 0 {
				t.Fatalf("round %d cancelled with %d bytes", i, n)
			}
		default:
			t.Fatalf("round %d unexpected outcome: %v", i, err)
		}
		if e.cur.Load() != nil {
			t.Fatalf("round %d left a transaction in the slot", i)
		}
	}
}

func TestAddressMode_RoundTrip(t *testing.T) {
	e := newTestEngine(t, true, true, &stubBackend{})
	if e.AddressMode() {
		t.Fatalf("fresh engine in fixed address mode")
	}
	e.SetAddressMode(true)
	if !e.AddressMode() {
		t.Errorf("fixed address mode not set")
	}
	if mmio.ReadU32(e.regs, RegControl)&CtrlNonIncMode == 0 {
		t.Errorf("control register bit not mirrored")
	}
	e.SetAddressMode(false)
	if e.AddressMode() {
		t.Errorf("fixed address mode not cleared")
	}
}

func TestSetPoll_TogglesInterruptMask(t *testing.T) {
	e := newTestEngine(t, true, false, &stubBackend{})
	if mmio.ReadU32(e.regs, RegIntEnable)&IntDescDone == 0 {
		t.Fatalf("interrupt mode did not unmask descriptor interrupts")
	}
	e.SetPoll(true)
	if mmio.ReadU32(e.regs, RegIntEnable)&IntDescDone != 0 {
		t.Fatalf("poll mode did not mask descriptor interrupts")
	}
}

func TestPerfCounters(t *testing.T) {
	e := newTestEngine(t, true, true, &stubBackend{})
	e.StartPerf()

	req := api.NewRequest(api.OpWrite, 0, make([]byte, 2*MaxDescLen))
	e.Submit(req)
	req.Wait()

	data := e.GetPerf()
	if !data.Running {
		t.Errorf("counters not running after StartPerf")
	}
	if data.DescCount != 2 {
		t.Errorf("DescCount = %d, want 2", data.DescCount)
	}
	if data.DataCycles != 2*MaxDescLen/datapathBytes {
		t.Errorf("DataCycles = %d", data.DataCycles)
	}

	e.StartPerf()
	if d := e.GetPerf(); d.DescCount != 0 {
		t.Errorf("StartPerf did not reset counters: %d", d.DescCount)
	}
}

func TestBuildDescriptors_Chain(t *testing.T) {
	descs, err := buildDescriptors(nil, 2*MaxDescLen+10, 0x1000, api.DirH2C)
	if err != nil {
		t.Fatalf("buildDescriptors: %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("chain length = %d, want 3", len(descs))
	}
	if descs[0].DevAddr != 0x1000 || descs[1].DevAddr != 0x1000+MaxDescLen {
		t.Errorf("device addresses wrong: %#x %#x", descs[0].DevAddr, descs[1].DevAddr)
	}
	if descs[2].Len != 10 {
		t.Errorf("tail segment len = %d, want 10", descs[2].Len)
	}
	if descs[2].Control&DescCtlStop == 0 {
		t.Errorf("stop bit missing on last descriptor")
	}
	if descs[0].Control&DescCtlStop != 0 {
		t.Errorf("stop bit set on interior descriptor")
	}
	if descs[2].Control&DescMagic != DescMagic {
		t.Errorf("descriptor magic missing")
	}
}
