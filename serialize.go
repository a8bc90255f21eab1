package pgpcert

import (
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/pgpcert/pgpcert/packet"
)

// packets flattens the certificate into its canonical packet sequence:
// the primary key and its signatures, then user IDs, user attributes,
// subkeys and unknown components, each followed by its signatures, and
// finally the signatures that could not be placed anywhere.
func (c *Cert) packets() []packet.Packet {
	var out []packet.Packet
	add := func(p packet.Packet, sigs *Signatures) {
		out = append(out, p)
		for _, sig := range sigs.inOrder() {
			out = append(out, sig)
		}
	}

	add(c.primary.keyPacket(), &c.primary.Signatures)
	for _, b := range c.userids {
		add(b.UserId, &b.Signatures)
	}
	for _, b := range c.userAttributes {
		add(b.UserAttribute, &b.Signatures)
	}
	for _, b := range c.subkeys {
		add(b.keyPacket(), &b.Signatures)
	}
	for _, b := range c.unknowns {
		add(b.Packet, &b.Signatures)
	}
	for _, sig := range c.bad {
		out = append(out, sig)
	}
	return out
}

// Serialize writes the certificate to w in binary form. Parsing the
// output yields an equal certificate, and serializing that yields the
// same bytes.
func (c *Cert) Serialize(w io.Writer) error {
	for _, p := range c.packets() {
		if err := p.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// SerializeArmored writes the certificate to w wrapped in ASCII armor.
// The block type follows the presence of secret key material.
func (c *Cert) SerializeArmored(w io.Writer) error {
	blockType := PublicKeyType
	if c.HasSecretKeyMaterial() {
		blockType = PrivateKeyType
	}
	aw, err := armor.Encode(w, blockType, nil)
	if err != nil {
		return err
	}
	if err := c.Serialize(aw); err != nil {
		return err
	}
	return aw.Close()
}
