package render

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/roach88/datalib/internal/txn"
)

// DomainCollection prefixes collection content hashes. The version suffix
// allows the rendering to change without colliding with old hashes.
const DomainCollection = "datalib/collection/v1"

// ContentHash returns SHA256(domain + 0x00 + JSON(s)) in hex. Collections
// with equal data, children included, have equal hashes.
func ContentHash(s txn.Store) (string, error) {
	data, err := JSON(s)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(DomainCollection))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
