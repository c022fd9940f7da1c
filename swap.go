package lcdif

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Controller is the panel controller as seen by the compositor.
type Controller interface {
	// SetNextBufferAddr hands addr to the controller. The controller latches
	// it at the next frame boundary and never preempts a scan in progress.
	// It must not call Dev.FrameDone itself.
	SetNextBufferAddr(addr uint32) error
}

// Flusher makes CPU writes to a buffer visible to bus masters.
type Flusher interface {
	Flush(b Buffer) error
}

// irqSource is implemented by controllers exposing a frame-done status.
type irqSource interface {
	InterruptStatus() (uint32, error)
	ClearInterruptStatus(mask uint32) error
}

type stopper interface {
	Stop() error
}

// State is the position of the device in its compose/publish cycle.
type State uint8

// Device states.
const (
	Idle      State = iota // No frame in flight
	Composing              // A write holds the token and is composing Back
	Published              // The composed buffer was handed to the controller
	Faulted                // A bounded wait expired; the device refuses writes
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Composing:
		return "Composing"
	case Published:
		return "Published"
	case Faulted:
		return "Faulted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// swapController hands composed buffers to the controller and keeps at most
// one frame in flight.
//
// The token is a binary semaphore with initial value 1: a write takes it
// before composing and the frame-done interrupt of the frame it published
// gives it back. Holding the token is what serializes producers.
type swapController struct {
	token   chan struct{}
	ctrl    Controller
	flush   Flusher
	timeout time.Duration
}

func newSwapController(ctrl Controller, flush Flusher, timeout time.Duration) *swapController {
	s := &swapController{
		token:   make(chan struct{}, 1),
		ctrl:    ctrl,
		flush:   flush,
		timeout: timeout,
	}
	s.token <- struct{}{}
	return s
}

// acquire blocks until the previous frame completed. Without a timeout the
// wait is unconditional: a missed interrupt blocks the caller until ctx is
// done.
func (s *swapController) acquire(ctx context.Context) error {
	var expired <-chan time.Time
	if s.timeout > 0 {
		t := time.NewTimer(s.timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-s.token:
		return nil
	case <-expired:
		return fmt.Errorf("lcdif: no frame completion within %v: %w", s.timeout, ErrFaulted)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns the token. Releasing an already available token is a
// no-op, so the count never exceeds one. It reports whether the token was
// actually returned.
func (s *swapController) release() bool {
	select {
	case s.token <- struct{}{}:
		return true
	default:
		return false
	}
}

// flushBuffer makes the CPU writes to b visible to the controller.
func (s *swapController) flushBuffer(b Buffer) error {
	if s.flush == nil {
		return nil
	}
	if err := s.flush.Flush(b); err != nil {
		return fmt.Errorf("lcdif: cache flush: %w", err)
	}
	return nil
}

// publish makes b visible to the controller as the next scan-out buffer and
// marks the frame in flight. The address and the state change together under
// d.mu, so a completion cannot slip in between them.
func (d *Dev) publish(b Buffer) error {
	if err := d.swap.flushBuffer(b); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.swap.ctrl.SetNextBufferAddr(b.Addr); err != nil {
		return err
	}
	if d.state != Faulted {
		d.state = Published
	}
	return nil
}

// FrameDone signals that the controller adopted the most recently published
// buffer. It is the interrupt-side half of the swap protocol and is safe to
// call from any goroutine.
//
// Only a published frame returns the token. The controller raises frame-done
// for repeated frames too; signals while a write is composing or no frame is
// in flight are absorbed.
func (d *Dev) FrameDone() {
	d.mu.Lock()
	published := d.state == Published
	if published {
		d.state = Idle
	}
	d.mu.Unlock()
	if published {
		d.swap.release()
	}
}

// HandleIRQ acknowledges the controller's pending interrupts and signals
// FrameDone.
func (d *Dev) HandleIRQ() error {
	if src, ok := d.ctrl.(irqSource); ok {
		st, err := src.InterruptStatus()
		if err != nil {
			return fmt.Errorf("lcdif: interrupt status: %w", err)
		}
		if err := src.ClearInterruptStatus(st); err != nil {
			return fmt.Errorf("lcdif: interrupt clear: %w", err)
		}
	}
	d.FrameDone()
	return nil
}

// irqPollPeriod bounds how long WatchIRQ waits on the pin before checking
// for cancellation.
const irqPollPeriod = 100 * time.Millisecond

// WatchIRQ services frame-done interrupts signalled on pin until ctx is done.
func (d *Dev) WatchIRQ(ctx context.Context, pin gpio.PinIn) error {
	if err := pin.In(gpio.PullNoChange, gpio.RisingEdge); err != nil {
		return fmt.Errorf("lcdif: irq pin %s: %w", pin, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !pin.WaitForEdge(irqPollPeriod) {
			continue
		}
		if err := d.HandleIRQ(); err != nil {
			return err
		}
	}
}

// PollIRQ polls the controller's interrupt status every period until ctx is
// done. It replaces WatchIRQ when no interrupt line is wired.
func (d *Dev) PollIRQ(ctx context.Context, period time.Duration) error {
	src, ok := d.ctrl.(irqSource)
	if !ok {
		return errors.New("lcdif: controller exposes no interrupt status")
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		st, err := src.InterruptStatus()
		if err != nil {
			return fmt.Errorf("lcdif: interrupt status: %w", err)
		}
		if st == 0 {
			continue
		}
		if err := src.ClearInterruptStatus(st); err != nil {
			return fmt.Errorf("lcdif: interrupt clear: %w", err)
		}
		d.FrameDone()
	}
}
