package ledger

import (
	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
)

// blockHash digests the canonical sorted-key serialization of the block's
// non-hash fields. Merkle root and transaction count join the digest input
// whenever present, so tampering with either invalidates the block hash.
func blockHash(b *model.Block) string {
	input := map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp,
		"data":          b.Data,
		"previous_hash": b.PreviousHash,
		"nonce":         b.Nonce,
	}
	if b.HasMerkleRoot() {
		input["merkle_root"] = b.MerkleRoot
		input["transaction_count"] = b.TransactionCount
	}

	// Canonical marshaling of a plain map cannot fail; the block's Data was
	// serialized once already when the merkle tree was built.
	hash, err := canonical.HashValue(input)
	if err != nil {
		panic("ledger: block not serializable: " + err.Error())
	}
	return hash
}

// ComputeHash recomputes a block's digest. Exposed for integrity checks and
// tests; it never stores the result on the block.
func ComputeHash(b *model.Block) string {
	return blockHash(b)
}
