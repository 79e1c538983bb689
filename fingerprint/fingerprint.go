// Package fingerprint derives stable BLAKE3 content hashes for graphs.
// An alias database records its graph's fingerprint at construction so
// out-of-band IR mutation can be detected before queries go stale.
package fingerprint

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"weft/ir"
)

// Graph hashes the canonical printed form of g. Two graphs with equal
// text fingerprint identically.
func Graph(g *ir.Graph) [32]byte {
	return blake3.Sum256([]byte(g.String()))
}

// GraphHex returns Graph's digest as a hex string.
func GraphHex(g *ir.Graph) string {
	sum := Graph(g)
	return hex.EncodeToString(sum[:])
}
