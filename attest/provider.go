// Package attest talks to the Nitro Security Module, the enclave identity
// oracle. It produces attestation documents over optional caller data and
// exposes the NSM entropy source used for key generation.
package attest

import (
	"errors"
	"fmt"
	"io"

	"github.com/hf/nsm"
	"github.com/hf/nsm/request"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// ErrNoDocument is returned when the NSM answers with anything other than a
// well-formed attestation.
var ErrNoDocument = errors.New("attest: failed to obtain an attestation document")

// NSM is the production interfaces.AttestationProvider backed by /dev/nsm.
type NSM struct {
	sess *nsm.Session
}

var _ interfaces.AttestationProvider = (*NSM)(nil)

// Open opens the default NSM session. It fails outside a Nitro enclave.
func Open() (*NSM, error) {
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		return nil, fmt.Errorf("open nsm session: %w", err)
	}
	return &NSM{sess: sess}, nil
}

// Attest requests an attestation document with the given bindings.
func (n *NSM) Attest(opts interfaces.AttestationOptions) (interfaces.AttestationDocument, error) {
	res, err := n.sess.Send(&request.Attestation{
		Nonce:     opts.Nonce,
		UserData:  opts.UserData,
		PublicKey: opts.PublicKey,
	})
	if err != nil {
		return nil, fmt.Errorf("nsm attestation request: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%w: nsm error %s", ErrNoDocument, res.Error)
	}
	if res.Attestation == nil || res.Attestation.Document == nil {
		return nil, ErrNoDocument
	}
	return interfaces.AttestationDocument(res.Attestation.Document), nil
}

// Rand returns the NSM-backed entropy source. Inside the enclave this is the
// only hardware-fed randomness; fresh signing keys are drawn from it.
func (n *NSM) Rand() io.Reader {
	return n.sess
}

// Close releases the NSM session.
func (n *NSM) Close() error {
	return n.sess.Close()
}
