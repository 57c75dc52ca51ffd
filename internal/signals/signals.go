// Package signals turns process signals into reactor events.
//
// Delivery goes through os/signal, whose runtime handler only queues the
// signal; the forwarding goroutine translates it and posts an event. All real
// work happens on the reactor goroutine.
package signals

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Kind is the loop-visible meaning of a signal.
type Kind int

const (
	Terminate Kind = iota
	Reload
	ChildReaped
)

func (k Kind) String() string {
	switch k {
	case Reload:
		return "reload"
	case ChildReaped:
		return "child-reaped"
	default:
		return "terminate"
	}
}

// Event is one delivered signal. Origin names what produced it.
type Event struct {
	Kind   Kind
	Origin string
}

// Classify maps an OS signal to its Kind.
func Classify(sig os.Signal) (Kind, bool) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return Terminate, true
	case syscall.SIGHUP:
		return Reload, true
	case syscall.SIGCHLD:
		return ChildReaped, true
	default:
		return 0, false
	}
}

// Start subscribes to SIGTERM, SIGINT, SIGHUP and SIGCHLD and posts each as
// an Event until ctx ends. The returned function unsubscribes.
func Start(ctx context.Context, emit func(Event)) func() {
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGCHLD)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case sig := <-ch:
				if kind, ok := Classify(sig); ok {
					emit(Event{Kind: kind, Origin: sig.String()})
				}
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// Reaped is one collected child.
type Reaped struct {
	PID    int
	Status unix.WaitStatus
}

// Reap collects every exited child without blocking.
func Reap() []Reaped {
	var out []Reaped
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || pid <= 0 {
			return out
		}
		out = append(out, Reaped{PID: pid, Status: status})
	}
}
