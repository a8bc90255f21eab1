// Package errors contains common error types for the pgpcert packages.
package errors

// StructuralError is returned when certificate data is structurally
// invalid: it does not start with a primary key, contains packets that
// can never appear in a certificate, or looks like a keyring where a
// single certificate was expected.
type StructuralError string

func (s StructuralError) Error() string {
	return "pgpcert: invalid data: " + string(s)
}

// UnsupportedError indicates that, although the data is structurally
// valid, it uses a format version this package cannot handle, such as a
// legacy v3 primary key.
type UnsupportedError string

func (s UnsupportedError) Error() string {
	return "pgpcert: unsupported feature: " + string(s)
}

// InvalidArgumentError indicates that the caller is in some way mistaken,
// for example merging two certificates with different fingerprints.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "pgpcert: invalid argument: " + string(i)
}

// InvalidOperationError indicates that a caller-supplied callback
// violated its contract, for example a conflict resolver that returned a
// packet with a different content identity.
type InvalidOperationError string

func (i InvalidOperationError) Error() string {
	return "pgpcert: invalid operation: " + string(i)
}

// SizeExceededError is returned when a subpacket area mutation would
// push the area's serialized form past the wire format's size ceiling.
type SizeExceededError string

func (s SizeExceededError) Error() string {
	return "pgpcert: size exceeded: " + string(s)
}

// SignatureError indicates a signature that failed verification. During
// canonicalization these are recovered locally and never surface to the
// caller; the offending signatures end up in the certificate's bad
// signature list instead.
type SignatureError string

func (s SignatureError) Error() string {
	return "pgpcert: signature invalid: " + string(s)
}
