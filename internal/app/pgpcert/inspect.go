package pgpcert

import (
	"fmt"
	"text/tabwriter"
	"time"
)

// Inspect prints a summary of the certificate at path.
func (a *App) Inspect(path string) error {
	cert, err := a.loadCert(path)
	if err != nil {
		return fmt.Errorf("while loading certificate: %w", err)
	}

	tw := tabwriter.NewWriter(a.opts.out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	pk := cert.PrimaryKey()
	fmt.Fprintf(tw, "Fingerprint:\t%v\n", pk.FingerprintString())
	fmt.Fprintf(tw, "Key ID:\t%v\n", pk.KeyIdString())
	fmt.Fprintf(tw, "Created:\t%v\n", pk.CreationTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Secret material:\t%v\n", cert.HasSecretKeyMaterial())
	fmt.Fprintf(tw, "Revocation:\t%v\n", cert.RevocationStatus(time.Now()).State)

	for _, b := range cert.UserIds() {
		fmt.Fprintf(tw, "User ID:\t%q\t(%d self, %d third-party, %d revocations)\n",
			b.UserId.Id,
			len(b.SelfSignatures)+len(b.Attestations),
			len(b.Certifications),
			len(b.SelfRevocations)+len(b.OtherRevocations))
	}
	for _, b := range cert.UserAttributes() {
		fmt.Fprintf(tw, "User attribute:\t%d bytes\t(%d images, %d signatures)\n",
			len(b.UserAttribute.Contents),
			len(b.UserAttribute.ImageData()),
			len(b.SelfSignatures)+len(b.Attestations)+len(b.Certifications)+
				len(b.SelfRevocations)+len(b.OtherRevocations))
	}
	for _, b := range cert.Subkeys() {
		secret := ""
		if b.HasSecret() {
			secret = ", secret"
		}
		fmt.Fprintf(tw, "Subkey:\t%v\t(%d bindings, %d revocations%s)\n",
			b.Key.KeyIdString(),
			len(b.SelfSignatures)+len(b.Certifications),
			len(b.SelfRevocations)+len(b.OtherRevocations),
			secret)
	}
	for _, b := range cert.Unknowns() {
		fmt.Fprintf(tw, "Unknown component:\t%v\t(%d bytes)\n",
			b.Packet.PacketTag, len(b.Packet.Contents))
	}
	if n := len(cert.BadSignatures()); n > 0 {
		fmt.Fprintf(tw, "Bad signatures:\t%d\n", n)
	}

	return nil
}
