package types

// Digest is the opaque string form of a hash or of a combination of hashes.
// Digests compare by exact string equality; the empty Digest means "none".
type Digest string

// IsZero returns true for the empty digest.
func (d Digest) IsZero() bool {
	return d == ""
}

// String returns the digest text.
func (d Digest) String() string {
	return string(d)
}

// Short returns at most the first n characters followed by "..." when truncated.
// Used for log fields.
func (d Digest) Short(n int) string {
	if n <= 0 || len(d) <= n {
		return string(d)
	}
	return string(d[:n]) + "..."
}

// Digests converts a slice of strings into digests.
func Digests(ss []string) []Digest {
	out := make([]Digest, len(ss))
	for i, s := range ss {
		out[i] = Digest(s)
	}
	return out
}
