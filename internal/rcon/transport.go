// Package rcon sends console commands to a running server over the Source
// RCON protocol.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"arkwarden/internal/domain"

	"github.com/gorcon/rcon"
)

const (
	dialTimeout = 5 * time.Second
	ioDeadline  = 10 * time.Second
)

type Transport struct{}

func NewTransport() *Transport {
	return &Transport{}
}

// Address is where the profile's console listens. A wildcard bind is
// reached through loopback.
func Address(cfg domain.ServerConfig) string {
	host := strings.TrimSpace(cfg.MultiHome)
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.RCONPort))
}

// Password falls back to the admin password, which the server also accepts
// when no dedicated console password is configured.
func Password(cfg domain.ServerConfig) string {
	if p := strings.TrimSpace(cfg.RCONPassword); p != "" {
		return p
	}
	return cfg.AdminPassword
}

// Send opens a connection per command. The server drops idle console
// connections, so pooling buys nothing.
func (t *Transport) Send(ctx context.Context, p domain.Profile, command string) (string, error) {
	if !p.Config.RCONEnabled {
		return "", domain.ErrRemoteConsoleDisabled
	}

	deadline := ioDeadline
	if d, ok := ctx.Deadline(); ok {
		if until := time.Until(d); until < deadline {
			deadline = until
		}
	}

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := rcon.Dial(Address(p.Config), Password(p.Config),
			rcon.SetDialTimeout(dialTimeout),
			rcon.SetDeadline(deadline),
		)
		if err != nil {
			done <- result{err: fmt.Errorf("rcon dial: %w", err)}
			return
		}
		defer conn.Close()

		out, err := conn.Execute(command)
		if err != nil {
			done <- result{err: fmt.Errorf("rcon execute: %w", err)}
			return
		}
		done <- result{out: out}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// IsConnectionReset reports the transient error class worth one retry.
// Windows surfaces it as WSAECONNRESET (10054).
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "10054") || strings.Contains(strings.ToLower(msg), "connection reset")
}
