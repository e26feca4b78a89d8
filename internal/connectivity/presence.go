package connectivity

import (
	"context"
	"net"
	"time"
)

// PresenceSource reports environment network presence.
//
// Watch calls update whenever presence changes and returns when ctx is done.
// Sources without a signal return immediately; the monitor then keeps IsOnline true.
type PresenceSource interface {
	Watch(ctx context.Context, update func(online bool))
}

// NoPresence is the source for environments without a presence signal.
type NoPresence struct{}

// Watch returns immediately.
func (NoPresence) Watch(context.Context, func(bool)) {}

// ChannelPresence forwards values received on a channel.
// The caller owns the channel; closing it ends the watch.
type ChannelPresence struct {
	C <-chan bool
}

// Watch forwards every value from C until ctx is done or C is closed.
func (p ChannelPresence) Watch(ctx context.Context, update func(online bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-p.C:
			if !ok {
				return
			}
			update(online)
		}
	}
}

// InterfacePresence polls the host's network interfaces. The host counts as online
// while at least one non-loopback interface is up and has an address.
type InterfacePresence struct {
	interval time.Duration
	check    func() bool
}

// NewInterfacePresence creates a source polling every interval (default 5s).
func NewInterfacePresence(interval time.Duration) *InterfacePresence {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &InterfacePresence{interval: interval, check: hasUsableInterface}
}

// Watch reports the initial presence, then every change, until ctx is done.
func (p *InterfacePresence) Watch(ctx context.Context, update func(online bool)) {
	last := p.check()
	update(last)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if online := p.check(); online != last {
				last = online
				update(online)
			}
		}
	}
}

func hasUsableInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
