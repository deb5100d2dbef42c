package transport

import (
	"fmt"
	"net"

	"github.com/mdlayher/vsock"
)

// HostCID is the fixed vsock context identifier of the parent instance. It
// is the only network path reachable from inside the enclave.
const HostCID = 3

// DialHost connects to the parent instance on the given vsock port.
func DialHost(port uint32) (net.Conn, error) {
	conn, err := vsock.Dial(HostCID, port, nil)
	if err != nil {
		return nil, fmt.Errorf("vsock dial host port %d: %w", port, err)
	}
	return conn, nil
}

// Listen opens a vsock listener on the given port, accepting connections
// from any context id.
func Listen(port uint32) (net.Listener, error) {
	l, err := vsock.Listen(port, nil)
	if err != nil {
		return nil, fmt.Errorf("vsock listen port %d: %w", port, err)
	}
	return l, nil
}
