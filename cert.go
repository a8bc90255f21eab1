package pgpcert

import (
	"github.com/pgpcert/pgpcert/packet"
)

// A Cert is a canonicalized OpenPGP certificate: a primary key, the
// components bound to it and all their signatures, held in a
// deterministic order. Two Certs holding the same information
// serialize to the same bytes.
//
// The constructors always canonicalize, so a Cert never exposes
// duplicate components, misfiled signatures or self signatures that
// fail verification. What cannot be placed is retained in the bad
// signature list and on unknown components rather than dropped.
type Cert struct {
	primary        *KeyBundle
	userids        []*UserIdBundle
	userAttributes []*UserAttributeBundle
	subkeys        []*KeyBundle
	unknowns       []*UnknownBundle
	bad            []*packet.Signature

	config *Config
}

// PrimaryKey returns the certificate's primary key.
func (c *Cert) PrimaryKey() *packet.PublicKey {
	return c.primary.Key
}

// Primary returns the primary key bundle, including the direct key
// signatures and revocations on it.
func (c *Cert) Primary() *KeyBundle {
	return c.primary
}

// Fingerprint returns the primary key's fingerprint.
func (c *Cert) Fingerprint() []byte {
	return c.primary.Key.Fingerprint
}

// KeyId returns the primary key's key ID.
func (c *Cert) KeyId() uint64 {
	return c.primary.Key.KeyId
}

// UserIds returns the user ID bundles in canonical order.
func (c *Cert) UserIds() []*UserIdBundle {
	return c.userids
}

// UserAttributes returns the user attribute bundles in canonical
// order.
func (c *Cert) UserAttributes() []*UserAttributeBundle {
	return c.userAttributes
}

// Subkeys returns the subkey bundles in canonical order.
func (c *Cert) Subkeys() []*KeyBundle {
	return c.subkeys
}

// Unknowns returns the unknown component bundles in canonical order.
func (c *Cert) Unknowns() []*UnknownBundle {
	return c.unknowns
}

// BadSignatures returns the signatures that could not be placed on any
// component. They are preserved so that merging and re-serializing a
// certificate never silently loses data.
func (c *Cert) BadSignatures() []*packet.Signature {
	return c.bad
}

// HasSecretKeyMaterial reports whether the primary key or any subkey
// carries secret key material.
func (c *Cert) HasSecretKeyMaterial() bool {
	if c.primary.HasSecret() {
		return true
	}
	for _, sub := range c.subkeys {
		if sub.HasSecret() {
			return true
		}
	}
	return false
}

// StripSecretKeyMaterial removes all secret key material from the
// certificate and returns it.
func (c *Cert) StripSecretKeyMaterial() *Cert {
	c.primary.Secret = nil
	for _, sub := range c.subkeys {
		sub.Secret = nil
	}
	return c
}
