package rcon

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"arkwarden/internal/domain"
)

func TestAddressAndPassword(t *testing.T) {
	cfg := domain.DefaultServerConfig(0)
	cfg.MultiHome = "0.0.0.0"
	cfg.RCONPort = 27020

	assert.Equal(t, "127.0.0.1:27020", Address(cfg))
	cfg.MultiHome = "10.1.2.3"
	assert.Equal(t, "10.1.2.3:27020", Address(cfg))

	assert.Equal(t, "adminpassword", Password(cfg))
	cfg.RCONPassword = " console "
	assert.Equal(t, "console", Password(cfg))
}

func TestIsConnectionReset(t *testing.T) {
	assert.True(t, IsConnectionReset(fmt.Errorf("rcon execute: %w", syscall.ECONNRESET)))
	assert.True(t, IsConnectionReset(errors.New("os error 10054")))
	assert.True(t, IsConnectionReset(errors.New("read tcp: Connection reset by peer")))
	assert.False(t, IsConnectionReset(errors.New("authentication failed")))
	assert.False(t, IsConnectionReset(nil))
}

func TestSendRejectsDisabledConsole(t *testing.T) {
	p := domain.Profile{Config: domain.DefaultServerConfig(0)}
	_, err := NewTransport().Send(context.Background(), p, "SaveWorld")
	assert.ErrorIs(t, err, domain.ErrRemoteConsoleDisabled)
}
