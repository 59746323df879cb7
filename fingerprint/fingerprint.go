// Package fingerprint derives stable identifiers for cached UI artifacts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// NoRefinements is the sentinel for an empty refinement history with no
// standing instruction. It is never a valid digest (digests are hex).
const NoRefinements = "none"

// digestLen is the fixed truncation length of every digest, in hex
// characters (64 bits of a SHA-256).
const digestLen = 16

const (
	historyDelimiter     = "|"
	instructionSeparator = "||"
)

// Schema fingerprints a tool input schema. The schema is serialized as
// canonical JSON (map keys sorted lexicographically at every level), so
// schemas that differ only in key order fingerprint identically.
func Schema(schema map[string]any) string {
	b, err := json.Marshal(schema)
	if err != nil {
		// Well-formed schemas (decoded JSON) always marshal; anything
		// else still gets a deterministic digest of the empty document.
		b = nil
	}
	return digest(b)
}

// Refinements fingerprints an ordered refinement history plus an
// optional standing instruction. Order, content, and the presence of
// the instruction all change the digest.
func Refinements(history []string, instruction string) string {
	if len(history) == 0 && instruction == "" {
		return NoRefinements
	}
	joined := strings.Join(history, historyDelimiter)
	if instruction != "" {
		joined += instructionSeparator + instruction
	}
	return digest([]byte(joined))
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:digestLen]
}
