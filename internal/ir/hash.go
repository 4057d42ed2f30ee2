package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFiring = "cardflow/firing/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FiringID computes the content-addressed ID of a firing.
//
// The same automation reacting to the same event on the same card in the
// same cycle at the same evaluation instant always yields the same ID, which
// makes re-recording a firing idempotent.
func FiringID(f Firing) (string, error) {
	obj := map[string]any{
		"cycle":         f.Cycle,
		"at":            f.At.UTC().UnixNano(),
		"automation_id": f.AutomationID,
		"card_id":       f.CardID,
		"event":         string(f.Event.Kind),
		"context":       f.Event.Context(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FiringID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainFiring, canonical), nil
}
