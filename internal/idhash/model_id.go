package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeModelID computes a deterministic model id using SHA256.
// Formula: SHA256(dataset_id|kind|payload)
// Returns hex-encoded hash (64 characters).
func ComputeModelID(datasetID, kind string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(datasetID))
	h.Write([]byte{'|'})
	h.Write([]byte(kind))
	h.Write([]byte{'|'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
