package enclave

import (
	"log/slog"
	"time"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// retryInterval is the documented delay between channel establishment
// attempts. Reconnecting within a second keeps missed blocks to a minimum
// without hammering a host that is still coming up.
const retryInterval = time.Second

// driverState names the two states of the session driver.
type driverState int

const (
	// stateConnecting is (re-)establishing the validator channel.
	stateConnecting driverState = iota

	// stateRunning is serving validator requests over a live channel.
	stateRunning
)

// Session is the signing-session component the driver feeds connections to.
// privval.Session implements it.
type Session interface {
	// ResetConnection replaces the channel after a reconnect. Signing
	// state is untouched.
	ResetConnection(conn interfaces.Connection)

	// RequestLoop serves validator requests until the channel or the
	// state oracle fails.
	RequestLoop() error
}

// Driver owns the outer control loop of the signing session: establish a
// channel, run the session over it, and on any error re-establish and
// resume. It has no terminal state. A signer that halts on a transient
// network failure makes the validator miss blocks, which is worse than a
// few seconds of reconnect delay.
type Driver struct {
	// Establish produces a fresh validator channel.
	Establish func() (interfaces.Connection, error)

	// Session survives reconnects; only its connection is replaced.
	Session Session

	// Sleep overrides the retry delay in tests.
	Sleep func(time.Duration)

	Log *slog.Logger
}

// Run drives the session forever. It only returns when the process is
// terminated, so callers treat it as the final statement of the start path.
func (d *Driver) Run() {
	sleep := d.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	state := stateConnecting
	var conn interfaces.Connection

	for {
		switch state {
		case stateConnecting:
			c, err := d.Establish()
			if err != nil {
				d.Log.Error("validator channel establishment failed, retrying",
					slog.Duration("retry_in", retryInterval), "err", err)
				sleep(retryInterval)
				continue
			}
			conn = c
			d.Session.ResetConnection(conn)
			state = stateRunning
			d.Log.Info("validator channel established, serving requests")

		case stateRunning:
			err := d.Session.RequestLoop()
			d.Log.Error("signing session interrupted, reconnecting", "err", err)
			conn.Close()
			state = stateConnecting
		}
	}
}
