package pgpcert

import (
	"time"

	"github.com/pgpcert/pgpcert/packet"
)

// RevocationState summarizes what is known about a certificate's
// revocation.
type RevocationState int

const (
	// NotAsFarAsWeKnow means no revocation is in evidence.
	NotAsFarAsWeKnow RevocationState = iota
	// CouldBeRevoked means third-party revocations are present but
	// cannot be verified without their issuers' certificates.
	CouldBeRevoked
	// Revoked means the certificate holder revoked the key.
	Revoked
)

func (s RevocationState) String() string {
	switch s {
	case Revoked:
		return "revoked"
	case CouldBeRevoked:
		return "could be revoked"
	}
	return "not as far as we know"
}

// RevocationStatus describes the revocation state of the certificate
// together with the signatures asserting it.
type RevocationStatus struct {
	State      RevocationState
	Signatures []*packet.Signature
}

// RevocationStatus returns the certificate's revocation status at time
// t. Self revocations were verified during canonicalization; one whose
// creation time is not in t's future revokes the key. Third-party
// revocations only demote the answer to CouldBeRevoked, since
// verifying them needs keys this certificate does not carry.
func (c *Cert) RevocationStatus(t time.Time) RevocationStatus {
	var effective []*packet.Signature
	for _, sig := range c.primary.SelfRevocations {
		if created, ok := sig.CreationTime(); ok && created.After(t) {
			continue
		}
		effective = append(effective, sig)
	}
	if len(effective) > 0 {
		return RevocationStatus{State: Revoked, Signatures: effective}
	}
	if len(c.primary.OtherRevocations) > 0 {
		return RevocationStatus{State: CouldBeRevoked, Signatures: c.primary.OtherRevocations}
	}
	return RevocationStatus{State: NotAsFarAsWeKnow}
}
