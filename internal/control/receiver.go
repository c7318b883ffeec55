package control

import (
	"colonylink.ai/internal/transport/tcp"
)

// Poller is the listener surface the receiver needs.
type Poller interface {
	PollOnce() *tcp.Payload
}

// Receiver is the per-tick glue between the listener and the dispatcher: at most one
// payload is processed per tick.
type Receiver struct {
	poller Poller
	disp   *Dispatcher
}

func NewReceiver(p Poller, d *Dispatcher) *Receiver {
	return &Receiver{poller: p, disp: d}
}

// Tick polls once and dispatches whatever arrived. It has the world.TickHook shape.
func (r *Receiver) Tick(tick uint64) {
	p := r.poller.PollOnce()
	if p == nil {
		return
	}
	if p.Err != nil {
		r.disp.RecordFailure(tick, p.Remote, p.Err)
		return
	}
	r.disp.HandlePayload(tick, p.Data, p.Remote)
}
