package plancache

import "crypto/sha256"

// Digest is a 256-bit content hash.
type Digest [32]byte

// Combine folds a node's own content hash together with the hashes of the
// inputs its compiled plan depends on: H(content || dep1 || dep2 || ...).
// Callers must pass deps in a deterministic order, since the hash is
// sensitive to it.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(d)*2)
	for i, b := range d {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
