package probe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carterw/Pi-Cellular/internal/probe"
)

// mockExecutor implements cmdexec.Executor and records the invocation.
type mockExecutor struct {
	stdout []byte
	stderr []byte
	err    error

	gotName string
	gotArgs []string
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.gotName = name
	m.gotArgs = args
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return m.stdout, m.stderr, m.err
}

// blockingExecutor waits for the context to expire, like a wedged ping.
type blockingExecutor struct{}

func (blockingExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func staticResolver(addrs []string, err error) probe.Resolver {
	return func(context.Context, string) ([]string, error) {
		return addrs, err
	}
}

const pingOutput = "PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.\n" +
	"64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=23.4 ms\n" +
	"\n--- 8.8.8.8 ping statistics ---\n" +
	"1 packets transmitted, 1 received, 0% packet loss, time 0ms\n" +
	"rtt min/avg/max/mdev = 23.4/23.4/23.4/0.000 ms\n"

func TestProbe_Success(t *testing.T) {
	exec := &mockExecutor{stdout: []byte(pingOutput)}
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

	res := p.Probe(context.Background())
	if !res.OK {
		t.Fatalf("expected success, got failure: %s", res.Reason)
	}
	want := time.Duration(23.4 * float64(time.Millisecond))
	if res.RTT != want {
		t.Errorf("expected RTT %v, got %v", want, res.RTT)
	}
}

func TestProbe_InterfaceBoundArgs(t *testing.T) {
	exec := &mockExecutor{stdout: []byte(pingOutput)}
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

	p.Probe(context.Background())

	if exec.gotName != "ping" {
		t.Fatalf("expected ping invocation, got %q", exec.gotName)
	}
	args := strings.Join(exec.gotArgs, " ")
	if !strings.Contains(args, "-I wwan0") {
		t.Errorf("expected interface binding in args, got %q", args)
	}
	if !strings.Contains(args, "-c 1") || !strings.Contains(args, "-W 5") {
		t.Errorf("expected single bounded ping, got %q", args)
	}
}

func TestProbe_MalformedOutputFallsBackToElapsed(t *testing.T) {
	exec := &mockExecutor{stdout: []byte("some unexpected output without a latency field\n")}
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

	res := p.Probe(context.Background())
	if !res.OK {
		t.Fatalf("expected success despite unparseable output, got failure: %s", res.Reason)
	}
	if res.RTT <= 0 {
		t.Errorf("expected positive elapsed-time fallback, got %v", res.RTT)
	}
}

func TestProbe_FailureUsesStderr(t *testing.T) {
	exec := &mockExecutor{
		stderr: []byte("ping: connect: Network is unreachable\n"),
		err:    errors.New("exit status 2"),
	}
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

	res := p.Probe(context.Background())
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Reason != "ping: connect: Network is unreachable" {
		t.Errorf("expected stderr as reason, got %q", res.Reason)
	}
}

func TestProbe_FailureWithoutStderr(t *testing.T) {
	exec := &mockExecutor{err: errors.New("exit status 1")}
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

	res := p.Probe(context.Background())
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Reason != "Ping failed" {
		t.Errorf("expected generic reason, got %q", res.Reason)
	}
}

func TestProbe_WatchdogTimeout(t *testing.T) {
	p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, blockingExecutor{}, staticResolver(nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res := p.Probe(ctx)
	if res.OK {
		t.Fatal("expected failure on timeout")
	}
	if res.Reason != "Ping timeout" {
		t.Errorf("expected timeout reason, got %q", res.Reason)
	}
}

func TestProbe_ResolvesHostname(t *testing.T) {
	exec := &mockExecutor{stdout: []byte(pingOutput)}
	p := probe.NewWithDeps("dns.google", "wwan0", 5*time.Second, exec, staticResolver([]string{"8.8.4.4"}, nil))

	res := p.Probe(context.Background())
	if !res.OK {
		t.Fatalf("expected success, got: %s", res.Reason)
	}
	if got := exec.gotArgs[len(exec.gotArgs)-1]; got != "8.8.4.4" {
		t.Errorf("expected resolved address as ping target, got %q", got)
	}
}

func TestProbe_ResolutionFailure(t *testing.T) {
	exec := &mockExecutor{stdout: []byte(pingOutput)}
	p := probe.NewWithDeps("nope.invalid", "wwan0", 5*time.Second, exec, staticResolver(nil, errors.New("no such host")))

	res := p.Probe(context.Background())
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(res.Reason, "DNS resolution failed:") {
		t.Errorf("expected DNS failure reason, got %q", res.Reason)
	}
	if exec.gotName != "" {
		t.Error("expected no ping attempt after resolution failure")
	}
}

func TestProbe_LiteralAddressSkipsResolver(t *testing.T) {
	exec := &mockExecutor{stdout: []byte(pingOutput)}
	resolverCalled := false
	resolve := func(context.Context, string) ([]string, error) {
		resolverCalled = true
		return nil, errors.New("must not be called")
	}
	p := probe.NewWithDeps("1.1.1.1", "wwan0", 5*time.Second, exec, resolve)

	res := p.Probe(context.Background())
	if !res.OK {
		t.Fatalf("expected success, got: %s", res.Reason)
	}
	if resolverCalled {
		t.Error("expected resolver to be skipped for a literal address")
	}
}

func TestProbe_RTTParsing(t *testing.T) {
	tests := []struct {
		name   string
		output string
		wantMs float64
	}{
		{
			name:   "integer milliseconds",
			output: "64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=5 ms",
			wantMs: 5,
		},
		{
			name:   "decimal milliseconds",
			output: "64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=12.345 ms",
			wantMs: 12.345,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &mockExecutor{stdout: []byte(tc.output)}
			p := probe.NewWithDeps("8.8.8.8", "wwan0", 5*time.Second, exec, staticResolver(nil, nil))

			res := p.Probe(context.Background())
			if !res.OK {
				t.Fatalf("expected success, got: %s", res.Reason)
			}
			gotMs := float64(res.RTT) / float64(time.Millisecond)
			if diff := gotMs - tc.wantMs; diff > 0.001 || diff < -0.001 {
				t.Errorf("expected RTT %.3fms, got %.3fms", tc.wantMs, gotMs)
			}
		})
	}
}
