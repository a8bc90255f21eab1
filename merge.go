package pgpcert

import (
	"bytes"

	"github.com/pgpcert/pgpcert/errors"
)

// MergePublicAndSecret merges other into c and returns c. Both
// certificates must have the same primary key fingerprint. Components
// and signatures from both survive; where both sides carry secret
// material for the same key, other's copy wins. Both arguments are
// consumed.
func (c *Cert) MergePublicAndSecret(other *Cert) (*Cert, error) {
	if !bytes.Equal(c.Fingerprint(), other.Fingerprint()) {
		return nil, errors.InvalidArgumentError("primary key fingerprints differ")
	}

	if other.primary.HasSecret() {
		c.primary.Secret = other.primary.Secret
	}
	c.primary.appendFrom(&other.primary.Signatures)
	c.userids = append(c.userids, other.userids...)
	c.userAttributes = append(c.userAttributes, other.userAttributes...)
	c.subkeys = append(c.subkeys, other.subkeys...)
	c.unknowns = append(c.unknowns, other.unknowns...)
	c.bad = append(c.bad, other.bad...)

	c.canonicalize()
	return c, nil
}

// MergePublic merges other into c, ignoring any secret key material in
// other: c keeps exactly the secret material it already had. Both
// arguments are consumed.
func (c *Cert) MergePublic(other *Cert) (*Cert, error) {
	other.StripSecretKeyMaterial()
	return c.MergePublicAndSecret(other)
}
