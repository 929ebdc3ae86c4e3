// Package probe issues single bounded-timeout reachability probes against a
// remote host over a designated network interface.
package probe

import (
	"context"
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carterw/Pi-Cellular/internal/cmdexec"
)

// watchdogGrace is added on top of ping's own -W timeout so a wedged ping
// process can never stall a cycle.
const watchdogGrace = 2 * time.Second

// Resolver maps a hostname to its addresses.
type Resolver func(ctx context.Context, host string) ([]string, error)

func defaultResolver(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// Pinger probes a single host over a fixed interface.
type Pinger struct {
	host    string
	iface   string
	timeout time.Duration
	exec    cmdexec.Executor
	resolve Resolver
}

// New creates a Pinger using the system ping binary and resolver.
func New(host, iface string, timeout time.Duration) *Pinger {
	return &Pinger{
		host:    host,
		iface:   iface,
		timeout: timeout,
		exec:    cmdexec.OS{},
		resolve: defaultResolver,
	}
}

// NewWithDeps creates a Pinger with a custom executor and resolver (for testing).
func NewWithDeps(host, iface string, timeout time.Duration, exec cmdexec.Executor, resolve Resolver) *Pinger {
	return &Pinger{host: host, iface: iface, timeout: timeout, exec: exec, resolve: resolve}
}

var rttRegex = regexp.MustCompile(`time=(\d+\.?\d*)\s*ms`)

// Probe resolves the target if needed and issues one interface-bound ping.
// It never returns an error: every failure mode is folded into the Result.
func (p *Pinger) Probe(ctx context.Context) Result {
	start := time.Now()
	res := Result{At: start}

	target := p.host
	if net.ParseIP(target) == nil {
		addrs, err := p.resolve(ctx, target)
		if err != nil {
			res.Reason = fmt.Sprintf("DNS resolution failed: %v", err)
			return res
		}
		if len(addrs) == 0 {
			res.Reason = fmt.Sprintf("DNS resolution failed: no addresses for %q", target)
			return res
		}
		target = addrs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout+watchdogGrace)
	defer cancel()

	timeoutSec := int(math.Ceil(p.timeout.Seconds()))
	if timeoutSec < 1 {
		timeoutSec = 1
	}
	args := []string{"-I", p.iface, "-c", "1", "-W", strconv.Itoa(timeoutSec), target}

	stdout, stderr, err := p.exec.Run(ctx, "ping", args...)
	elapsed := time.Since(start)

	if err != nil {
		switch msg := strings.TrimSpace(string(stderr)); {
		case ctx.Err() != nil:
			res.Reason = "Ping timeout"
		case msg != "":
			res.Reason = msg
		default:
			res.Reason = "Ping failed"
		}
		return res
	}

	res.OK = true
	if m := rttRegex.FindSubmatch(stdout); m != nil {
		if ms, perr := strconv.ParseFloat(string(m[1]), 64); perr == nil {
			res.RTT = time.Duration(ms * float64(time.Millisecond))
			return res
		}
	}
	// Unexpected output shape: report wall-clock elapsed time instead and
	// keep the probe a success.
	res.RTT = elapsed
	return res
}
