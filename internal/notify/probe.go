package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// greetingTimeout bounds reading the relay greeting.
const greetingTimeout = 10 * time.Second

// ErrUnexpectedGreeting is returned when the relay does not answer with 220.
var ErrUnexpectedGreeting = errors.New("unexpected SMTP greeting")

// Greeting is what the relay announced on connect.
type Greeting struct {
	// Address is the relay address that was dialled.
	Address string

	// Banner is the full greeting, one line per response line.
	Banner string

	// Host is the host name announced in the first greeting line.
	Host string

	// ESMTP is true when the greeting advertises ESMTP.
	ESMTP bool

	// Latency is the time from dialling until the greeting was read.
	Latency time.Duration
}

// Probe connects to the relay at addr (through proxyAddr when set), reads
// its 220 greeting and disconnects. It never authenticates or sends mail.
func Probe(ctx context.Context, addr, proxyAddr string, timeout time.Duration) (*Greeting, error) {
	dialer, err := newDialer(proxyAddr)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := dialWithContext(ctx, dialer, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close() //nolint:errcheck // probe connection

	if err := conn.SetReadDeadline(time.Now().Add(greetingTimeout)); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read greeting from %s: %w", addr, err)
	}
	if !strings.HasPrefix(line, "220") {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedGreeting, strings.TrimSpace(line))
	}

	// Multi-line greetings use "220-" for every line but the last.
	var banner strings.Builder
	banner.WriteString(strings.TrimSpace(line))
	for strings.HasPrefix(line, "220-") {
		line, err = reader.ReadString('\n')
		if err != nil {
			break
		}
		banner.WriteString("\n")
		banner.WriteString(strings.TrimSpace(line))
	}

	// Leave politely; the answer does not matter.
	_, _ = conn.Write([]byte("QUIT\r\n")) //nolint:errcheck // best effort

	g := &Greeting{
		Address: addr,
		Banner:  banner.String(),
		Latency: time.Since(start),
	}
	g.Host = greetingHost(g.Banner)
	g.ESMTP = strings.Contains(strings.ToUpper(g.Banner), "ESMTP")
	return g, nil
}

// greetingHost extracts the host name from the first greeting line.
func greetingHost(banner string) string {
	first, _, _ := strings.Cut(banner, "\n")
	first = strings.TrimPrefix(first, "220-")
	first = strings.TrimPrefix(first, "220 ")
	if parts := strings.Fields(first); len(parts) > 0 && parts[0] != "220" {
		return parts[0]
	}
	return ""
}
