package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// DomainImage is the domain prefix for image content digests.
// Version suffix enables future algorithm migration.
const DomainImage = "niftimath/image/v1"

// ImageDigest computes a content digest of an image's shape and values.
//
// Format: SHA256(domain + 0x00 + ndim + dims... + float64 bits...), all
// integers little-endian uint64. Two images have the same digest exactly
// when their shapes and bit patterns match.
func ImageDigest(img *Image) string {
	h := sha256.New()
	h.Write([]byte(DomainImage))
	h.Write([]byte{0x00}) // Null separator

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(img.Shape)))
	h.Write(buf[:])
	for _, d := range img.Shape {
		binary.LittleEndian.PutUint64(buf[:], uint64(d))
		h.Write(buf[:])
	}

	chunk := make([]byte, 0, 8*1024)
	for _, v := range img.Data {
		chunk = binary.LittleEndian.AppendUint64(chunk, math.Float64bits(v))
		if len(chunk) == cap(chunk) {
			h.Write(chunk)
			chunk = chunk[:0]
		}
	}
	h.Write(chunk)

	return hex.EncodeToString(h.Sum(nil))
}
