// Package reactor runs the single event loop that owns window manager state.
//
// Every source (display, signals, command channel, reconciler, config
// watcher) posts into one FIFO. The loop handles one event at a time in
// arrival order, so handlers never run concurrently with each other.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/signals"
)

// State is the loop lifecycle.
type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "running"
	}
}

// ErrConnectionLost is returned by Run when the display connection closed.
var ErrConnectionLost = errors.New("display connection lost")

const defaultQueueSize = 256

// Event is one queued unit of work.
type Event interface {
	isReactorEvent()
}

// DisplayEvent wraps a translated display event.
type DisplayEvent struct{ Event platform.Event }

// SignalEvent wraps a delivered signal.
type SignalEvent struct{ Event signals.Event }

// CommandEvent wraps one command-channel request awaiting its reply.
type CommandEvent struct{ Request *ipc.Request }

// LiveWindowsEvent carries the display server's current top-level windows.
type LiveWindowsEvent struct{ Windows []platform.WindowID }

// ConfigEvent carries a freshly loaded configuration.
type ConfigEvent struct{ Config *config.Config }

func (DisplayEvent) isReactorEvent()     {}
func (SignalEvent) isReactorEvent()      {}
func (CommandEvent) isReactorEvent()     {}
func (LiveWindowsEvent) isReactorEvent() {}
func (ConfigEvent) isReactorEvent()      {}

// Handler is the state machine driven by the loop. All methods run on the
// loop goroutine.
type Handler interface {
	HandleDisplay(ev platform.Event)
	Reload()
	ChildReaped()
	Execute(line string) (string, error)
	Reconcile(live []platform.WindowID)
	ApplyConfig(cfg *config.Config)
	// BeginDrain tells the handler to refuse mutations from its own inputs,
	// such as key bindings, once shutdown starts.
	BeginDrain()
}

// Drainer stops accepting commands; the returned channel closes once every
// accepted command has been answered.
type Drainer interface {
	Drain() <-chan struct{}
}

// Config wires a Reactor.
type Config struct {
	Handler   Handler
	Drainer   Drainer
	Logger    *slog.Logger
	QueueSize int
}

// Reactor is the event loop.
type Reactor struct {
	handler Handler
	drainer Drainer
	logger  *slog.Logger

	events  chan Event
	stopped chan struct{}
	once    sync.Once
	state   atomic.Int32
	handled atomic.Uint64
}

// New creates a Reactor in the Running state.
func New(cfg Config) *Reactor {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		handler: cfg.Handler,
		drainer: cfg.Drainer,
		logger:  logger,
		events:  make(chan Event, size),
		stopped: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (r *Reactor) State() State {
	return State(r.state.Load())
}

// Handled returns how many events the loop has processed.
func (r *Reactor) Handled() uint64 {
	return r.handled.Load()
}

// Post queues ev. It blocks while the queue is full and returns false once the
// loop has stopped. Commands posted after stop are answered ShuttingDown.
func (r *Reactor) Post(ev Event) bool {
	select {
	case <-r.stopped:
		r.refuse(ev)
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.stopped:
		r.refuse(ev)
		return false
	}
}

func (r *Reactor) refuse(ev Event) {
	if c, ok := ev.(CommandEvent); ok {
		c.Request.Reply(ipc.FormatError(&command.Error{Reason: command.ShuttingDown}))
	}
}

// PostDisplay queues a display event.
func (r *Reactor) PostDisplay(ev platform.Event) { r.Post(DisplayEvent{Event: ev}) }

// PostSignal queues a signal.
func (r *Reactor) PostSignal(ev signals.Event) { r.Post(SignalEvent{Event: ev}) }

// PostCommand queues a command request.
func (r *Reactor) PostCommand(req *ipc.Request) { r.Post(CommandEvent{Request: req}) }

// PostLiveWindows queues a reconcile snapshot.
func (r *Reactor) PostLiveWindows(ids []platform.WindowID) { r.Post(LiveWindowsEvent{Windows: ids}) }

// PostConfig queues a configuration change.
func (r *Reactor) PostConfig(cfg *config.Config) { r.Post(ConfigEvent{Config: cfg}) }

// Run processes events until the loop reaches Stopped. Terminate, or ctx
// ending, moves the loop to Draining; it stops once the drainer reports that
// every accepted command was answered. A lost display connection drains the
// same way and is returned as ErrConnectionLost.
func (r *Reactor) Run(ctx context.Context) error {
	defer r.once.Do(func() {
		r.state.Store(int32(Stopped))
		close(r.stopped)
	})

	var (
		drained <-chan struct{}
		exitErr error
	)
	done := ctx.Done()

	for {
		select {
		case <-done:
			done = nil
			drained = r.beginDrain("context done")

		case <-drained:
			r.logger.Info("reactor stopped", "events", r.handled.Load())
			return exitErr

		case ev := <-r.events:
			r.handled.Add(1)
			switch e := ev.(type) {
			case SignalEvent:
				if e.Event.Kind == signals.Terminate {
					if drained == nil {
						drained = r.beginDrain(e.Event.Origin)
					}
					continue
				}
			case DisplayEvent:
				if lost, ok := e.Event.(platform.ConnectionLost); ok {
					if exitErr == nil {
						exitErr = fmt.Errorf("%w: %v", ErrConnectionLost, lost.Err)
					}
					if drained == nil {
						drained = r.beginDrain("connection lost")
					}
					continue
				}
			}
			r.dispatch(ev)
		}
	}
}

func (r *Reactor) beginDrain(reason string) <-chan struct{} {
	r.state.Store(int32(Draining))
	r.logger.Info("reactor draining", "reason", reason)
	r.handler.BeginDrain()
	if r.drainer == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return r.drainer.Drain()
}

func (r *Reactor) dispatch(ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("reactor: handler panic", "event", fmt.Sprintf("%T", ev), "panic", p)
			if c, ok := ev.(CommandEvent); ok {
				c.Request.Reply(ipc.FormatError(command.Errorf(command.Internal, "%v", p)))
			}
		}
	}()

	switch e := ev.(type) {
	case DisplayEvent:
		r.handler.HandleDisplay(e.Event)
	case SignalEvent:
		switch e.Event.Kind {
		case signals.Reload:
			r.handler.Reload()
		case signals.ChildReaped:
			r.handler.ChildReaped()
		}
	case CommandEvent:
		r.execute(e.Request)
	case LiveWindowsEvent:
		r.handler.Reconcile(e.Windows)
	case ConfigEvent:
		r.handler.ApplyConfig(e.Config)
	}
}

func (r *Reactor) execute(req *ipc.Request) {
	if r.State() != Running {
		if cmd, err := command.Parse(req.Line); err == nil && cmd.Mutates() {
			req.Reply(ipc.FormatError(&command.Error{Reason: command.ShuttingDown}))
			return
		}
	}
	payload, err := r.handler.Execute(req.Line)
	if err != nil {
		r.logger.Debug("command rejected", "conn", req.ConnID, "command", req.Line, "error", err)
		req.Reply(ipc.FormatError(err))
		return
	}
	req.Reply(ipc.FormatOK(payload))
}
