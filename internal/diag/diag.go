// Package diag runs the startup diagnostics battery and the best-effort
// signal-strength query. Every check is purely observational: failures are
// reported, never propagated.
package diag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/carterw/Pi-Cellular/internal/cmdexec"
)

// checkTimeout bounds each external tool invocation so a hung utility
// cannot stall the caller.
const checkTimeout = 5 * time.Second

// CheckResult is the outcome of one diagnostic check.
type CheckResult struct {
	Name    string
	OK      bool
	Message string
}

// Runner performs diagnostics for one network interface.
type Runner struct {
	iface      string
	exec       cmdexec.Executor
	resolvConf string
}

// New creates a Runner for the given interface using real subprocesses.
func New(iface string) *Runner {
	return &Runner{iface: iface, exec: cmdexec.OS{}, resolvConf: "/etc/resolv.conf"}
}

// NewWithExecutor creates a Runner with a custom executor and resolv.conf
// path (for testing).
func NewWithExecutor(iface string, exec cmdexec.Executor, resolvConf string) *Runner {
	return &Runner{iface: iface, exec: exec, resolvConf: resolvConf}
}

// All runs the fixed battery in order: interface state, IP configuration,
// DNS configuration, route presence, modem status.
func (r *Runner) All(ctx context.Context) []CheckResult {
	checks := []struct {
		name string
		fn   func(context.Context) (bool, string)
	}{
		{"Interface", r.CheckInterface},
		{"IP Config", r.CheckIPConfig},
		{"DNS", r.CheckDNS},
		{"Routes", r.CheckRoute},
		{"Modem", r.CheckModem},
	}

	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		ok, msg := c.fn(ctx)
		results = append(results, CheckResult{Name: c.name, OK: ok, Message: msg})
	}
	return results
}

// CheckInterface reports whether the interface exists and is up.
func (r *Runner) CheckInterface(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	stdout, _, err := r.exec.Run(ctx, "ip", "link", "show", r.iface)
	if err != nil {
		if isExit(err) {
			return false, "Interface not found"
		}
		return false, fmt.Sprintf("Error checking interface: %v", err)
	}
	if !strings.Contains(string(stdout), "UP") {
		return false, "Interface is DOWN"
	}
	return true, "Interface is UP"
}

// CheckIPConfig reports whether the interface has an IP address assigned.
func (r *Runner) CheckIPConfig(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	stdout, _, err := r.exec.Run(ctx, "ip", "addr", "show", r.iface)
	if err != nil {
		if isExit(err) {
			return false, "Could not get IP config"
		}
		return false, fmt.Sprintf("Error checking IP: %v", err)
	}

	out := string(stdout)
	if !strings.Contains(out, "inet ") && !strings.Contains(out, "inet6 ") {
		return false, "No IP address assigned"
	}

	var ips []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "inet") {
			ips = append(ips, strings.TrimSpace(line))
		}
		if len(ips) == 2 {
			break
		}
	}
	return true, "IPs: " + strings.Join(ips, ", ")
}

// CheckDNS reports whether any nameservers are configured.
func (r *Runner) CheckDNS(_ context.Context) (bool, string) {
	data, err := os.ReadFile(r.resolvConf)
	if err != nil {
		return false, fmt.Sprintf("Error reading resolv.conf: %v", err)
	}

	var nameservers []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "nameserver") {
			nameservers = append(nameservers, line)
		}
		if len(nameservers) == 2 {
			break
		}
	}
	if len(nameservers) == 0 {
		return false, "No nameservers in resolv.conf"
	}
	return true, "DNS: " + strings.Join(nameservers, ", ")
}

// CheckRoute reports whether any routes exist for the interface.
func (r *Runner) CheckRoute(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	stdout, _, err := r.exec.Run(ctx, "ip", "route", "show", "dev", r.iface)
	if err != nil {
		if isExit(err) {
			return false, "No routes for interface"
		}
		return false, fmt.Sprintf("Error checking routes: %v", err)
	}

	routes := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	if len(routes) == 0 || routes[0] == "" {
		return false, "No routes configured"
	}
	return true, fmt.Sprintf("Routes: %d found", len(routes))
}

// CheckModem reports whether ModemManager sees a modem.
func (r *Runner) CheckModem(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	stdout, _, err := r.exec.Run(ctx, "mmcli", "-L")
	if err != nil {
		if isExit(err) {
			return false, "ModemManager not responding"
		}
		return false, fmt.Sprintf("Error checking modem: %v", err)
	}

	out := strings.TrimSpace(string(stdout))
	if !strings.Contains(out, "Modem") {
		return false, "No modems found"
	}
	lines := strings.Split(out, "\n")
	return true, "Modem: " + lines[0]
}

// SignalStrength returns the modem's reported signal quality, or "unknown"
// on any failure.
func (r *Runner) SignalStrength(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	stdout, _, err := r.exec.Run(ctx, "mmcli", "-m", "0")
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(stdout), "\n") {
		if strings.Contains(strings.ToLower(line), "signal quality") {
			if i := strings.LastIndex(line, ":"); i >= 0 {
				return strings.TrimSpace(line[i+1:])
			}
		}
	}
	return "unknown"
}

// isExit distinguishes a tool exiting non-zero from the tool being missing
// or killed.
func isExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
