package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FindingID builds a stable identifier for one Finding from its
// endpoint and the index of the TestCase that produced it (spec §3).
func FindingID(endpointID string, testCaseIndex int) string {
	return fmt.Sprintf("%s-%d", endpointID, testCaseIndex)
}

// EndpointID computes the stable identifier for an Endpoint: a hash of
// its method, template path, and origin format (spec §3). Identical
// inputs always produce the identical id, across processes and runs —
// the parse-determinism property in spec §8 depends on it.
func EndpointID(method Method, templateURL string, source SourceFormat) string {
	h := sha256.New()
	h.Write([]byte(string(method)))
	h.Write([]byte{0})
	h.Write([]byte(templateURL))
	h.Write([]byte{0})
	h.Write([]byte(string(source)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
