package ports

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"conductor/pkg/logging"
)

// MaxPort is the highest valid TCP port.
const MaxPort = 65535

// PortExhaustionError is returned when neither the declared port nor any of
// the Bound ports after it is free.
type PortExhaustionError struct {
	Port  int
	Bound int
}

func (e *PortExhaustionError) Error() string {
	last := e.Port + e.Bound
	if last > MaxPort {
		last = MaxPort
	}
	return fmt.Sprintf("no free port in range %d-%d", e.Port, last)
}

// ProbeFunc reports whether port can be bound right now.
type ProbeFunc func(port int) bool

// Allocator assigns ports and remembers which ones it has handed out during
// the run. It is safe for concurrent use.
type Allocator struct {
	mu       sync.Mutex
	probe    ProbeFunc
	reserved map[int]bool
}

// NewAllocator returns an allocator that probes by binding on all interfaces.
func NewAllocator() *Allocator {
	return NewAllocatorWithProbe(CanBind)
}

// NewAllocatorWithProbe returns an allocator that uses probe instead of a
// real bind.
func NewAllocatorWithProbe(probe ProbeFunc) *Allocator {
	return &Allocator{
		probe:    probe,
		reserved: make(map[int]bool),
	}
}

// CanBind briefly listens on port on all interfaces.
func CanBind(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close() // Close immediately to free the port
	return true
}

// Allocate returns declared if it is free, otherwise the first free port in
// declared+1 … declared+bound, never beyond MaxPort. Ports already handed
// out by this allocator count as occupied. The returned port is reserved
// until Release.
func (a *Allocator) Allocate(declared, bound int) (int, error) {
	if declared < 1 || declared > MaxPort {
		return 0, fmt.Errorf("invalid port %d", declared)
	}
	if bound < 0 {
		bound = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for port := declared; port <= declared+bound && port <= MaxPort; port++ {
		if a.reserved[port] {
			logging.Debug("PortAllocator", "Port %d already assigned in this run, skipping", port)
			continue
		}
		if !a.probe(port) {
			logging.Debug("PortAllocator", "Port %d not available (in use)", port)
			continue
		}
		a.reserved[port] = true
		return port, nil
	}

	return 0, &PortExhaustionError{Port: declared, Bound: bound}
}

// Release returns a port to the pool.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.reserved, port)
}

// Reserved reports whether port is currently handed out.
func (a *Allocator) Reserved(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved[port]
}
