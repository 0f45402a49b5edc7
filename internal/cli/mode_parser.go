package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModePoller  = "order-poller"
	ModeGateway = "notification-gateway"
)

// canonicalMode maps a mode name or one of its aliases to the canonical mode.
func canonicalMode(s string) (string, bool) {
	switch s {
	case ModePoller, "poller", "p":
		return ModePoller, true
	case ModeGateway, "gateway", "g":
		return ModeGateway, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `order-poller --prefetch=4`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := canonicalMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := canonicalMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./order-notifier --mode=<service> [flags]

Services (modes):
  order-poller               Polls the driver's backend and publishes new-order notifications
  notification-gateway       Driver session API and WebSocket push delivery

Examples:
  ./order-notifier --mode=order-poller --prefetch=4
  ./order-notifier --mode=notification-gateway --prefetch=16 --max-concurrent=200`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./order-notifier --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
