package wifi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/cjeanneret/SenseCam/internal/debug"
)

// Connector kinds accepted in the wifi.connector setting.
const (
	KindNone  = "none"  // networking is someone else's problem
	KindHost  = "host"  // interface is associated already; wait for an address
	KindNMCLI = "nmcli" // join the network through NetworkManager
)

const pollInterval = 250 * time.Millisecond

var ErrNoAddress = errors.New("interface has no IPv4 address")

// Credentials identify the network to join. PSK may be empty for open networks.
type Credentials struct {
	SSID string
	PSK  string
}

// Link describes an established connection.
type Link struct {
	Interface string
	Addr      net.IP
}

func (l *Link) String() string {
	if l.Interface == "" {
		return "unmanaged"
	}
	return fmt.Sprintf("%s (%v)", l.Interface, l.Addr)
}

// Connector brings the network up. Connect blocks until the link has an
// address or ctx expires.
type Connector interface {
	Connect(ctx context.Context, creds Credentials) (*Link, error)
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type lookupFunc func(iface string) (net.IP, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// New returns the connector for kind, bound to the network interface iface.
func New(kind, iface string) (Connector, error) {
	switch kind {
	case KindNone, "":
		return noneConnector{}, nil
	case KindHost:
		return &hostConnector{iface: iface, lookup: interfaceIPv4}, nil
	case KindNMCLI:
		return &nmcliConnector{
			hostConnector: hostConnector{iface: iface, lookup: interfaceIPv4},
			run:           execRun,
		}, nil
	default:
		return nil, fmt.Errorf("unknown wifi connector %q", kind)
	}
}

type noneConnector struct{}

func (noneConnector) Connect(ctx context.Context, creds Credentials) (*Link, error) {
	debug.Verbose("Wi-Fi: connector disabled, assuming network is up")
	return &Link{}, nil
}

type hostConnector struct {
	iface  string
	lookup lookupFunc
}

func (h *hostConnector) Connect(ctx context.Context, creds Credentials) (*Link, error) {
	debug.Verbose("Wi-Fi: waiting for an address on %s", h.iface)
	addr, err := h.waitForAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Wi-Fi network %q: %w", creds.SSID, err)
	}
	return &Link{Interface: h.iface, Addr: addr}, nil
}

func (h *hostConnector) waitForAddress(ctx context.Context) (net.IP, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		addr, err := h.lookup(h.iface)
		if err == nil {
			return addr, nil
		}
		lastErr = err
		debug.Trace("Wi-Fi: %s not ready: %v", h.iface, err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

type nmcliConnector struct {
	hostConnector
	run runFunc
}

func (n *nmcliConnector) Connect(ctx context.Context, creds Credentials) (*Link, error) {
	if creds.SSID == "" {
		return nil, errors.New("wifi ssid is required")
	}

	debug.Info("Wi-Fi: joining %q on %s", creds.SSID, n.iface)
	out, err := n.run(ctx, "nmcli", n.args(creds)...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Wi-Fi network %q: %w: %s",
			creds.SSID, err, strings.TrimSpace(string(out)))
	}
	debug.Verbose("Wi-Fi: nmcli: %s", strings.TrimSpace(string(out)))

	return n.hostConnector.Connect(ctx, creds)
}

func (n *nmcliConnector) args(creds Credentials) []string {
	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.PSK != "" {
		args = append(args, "password", creds.PSK)
	}
	if n.iface != "" {
		args = append(args, "ifname", n.iface)
	}
	return args
}

// interfaceIPv4 returns the first non-loopback IPv4 address of iface.
func interfaceIPv4(name string) (net.IP, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	if ifi.Flags&net.FlagUp == 0 {
		return nil, fmt.Errorf("%s is down", name)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4, nil
		}
	}
	return nil, ErrNoAddress
}
