package store

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// payloadDomainKey separates payload checksums from any other BLAKE3
// keyed hash. Changing it invalidates every existing cache.
var payloadDomainKey = [32]byte{
	'a', 'l', 'g', 'o', '-', 's', 'p', 'e', 'c', 't', 'r', 'a', '.',
	'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ChecksumSize is the length of a hex checksum.
const ChecksumSize = 64

// Checksum returns the hex content checksum of payload.
func Checksum(payload []byte) string {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		panic("store: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)

	var sum [32]byte
	hasher.Sum(sum[:0])
	return hex.EncodeToString(sum[:])
}

func validChecksum(s string) bool {
	if len(s) != ChecksumSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
