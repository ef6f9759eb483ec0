package model

import "time"

// SpeedProfile selects the simulated per-attempt mining delay. It models
// relative miner throughput only and never affects correctness.
type SpeedProfile string

const (
	ProfileCPU SpeedProfile = "CPU"
	ProfileGPU SpeedProfile = "GPU"
)

// Valid reports whether p is a known profile.
func (p SpeedProfile) Valid() bool {
	return p == ProfileCPU || p == ProfileGPU
}

// Block is one entry in the chain. Hash always equals the digest of the
// other fields (including MerkleRoot and TransactionCount when present) and
// is recomputed on every nonce attempt, never patched in place.
type Block struct {
	Index            int         `json:"index"`
	Timestamp        string      `json:"timestamp"`
	Data             interface{} `json:"data"`
	MerkleRoot       string      `json:"merkle_root,omitempty"`
	TransactionCount int         `json:"transaction_count,omitempty"`
	PreviousHash     string      `json:"previous_hash"`
	Nonce            uint64      `json:"nonce"`
	Hash             string      `json:"hash"`
}

// HasMerkleRoot reports whether the block commits to a transaction set.
// The genesis block does not.
func (b *Block) HasMerkleRoot() bool {
	return b.MerkleRoot != ""
}

// MiningResult is returned by a single successful mining run.
type MiningResult struct {
	Block        *Block        `json:"block"`
	MiningTime   time.Duration `json:"mining_time"`
	HashAttempts uint64        `json:"hash_attempts"`
	HashRate     float64       `json:"hash_rate"`
}

// MiningRunStats aggregates a multi-block mining run.
type MiningRunStats struct {
	Blocks       []*Block        `json:"blocks"`
	BlockTimes   []time.Duration `json:"block_times"`
	TotalHashes  uint64          `json:"total_hashes"`
	TotalTime    time.Duration   `json:"total_time"`
	AvgBlockTime time.Duration   `json:"avg_block_time"`
	HashRate     float64         `json:"hash_rate"`
}

// MerkleIntegrityResult reports a stored-root vs recomputed-root comparison.
// Tampering is an expected query outcome, so this is a result, not an error.
type MerkleIntegrityResult struct {
	Valid            bool       `json:"valid"`
	StoredRoot       string     `json:"stored_root,omitempty"`
	ComputedRoot     string     `json:"computed_root,omitempty"`
	TransactionCount int        `json:"transaction_count,omitempty"`
	TreeStats        *TreeStats `json:"tree_stats,omitempty"`
	Note             string     `json:"note,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// BlockProofResult bundles a per-block inclusion proof with the root it
// verifies against.
type BlockProofResult struct {
	Proof          []ProofStep `json:"proof"`
	RootHash       string      `json:"root_hash"`
	RecordVerified bool        `json:"record_verified"`
}

// ChainStats is a read-only chain summary.
type ChainStats struct {
	TotalBlocks     int    `json:"total_blocks"`
	LatestBlockHash string `json:"latest_block_hash"`
	ChainValid      bool   `json:"chain_valid"`
}

// MineBlockRequest is the API payload for mining a single block.
type MineBlockRequest struct {
	Data       interface{}  `json:"data" binding:"required"`
	Difficulty int          `json:"difficulty" binding:"required,min=1,max=6"`
	Profile    SpeedProfile `json:"profile" binding:"omitempty,speedprofile"`
}

// MineBlocksRequest is the API payload for a batch mining run.
type MineBlocksRequest struct {
	Count       int          `json:"count" binding:"required,min=1,max=100"`
	Difficulty  int          `json:"difficulty" binding:"required,min=1,max=6"`
	BlockSizeKB int          `json:"block_size_kb" binding:"min=0,max=256"`
	Profile     SpeedProfile `json:"profile" binding:"omitempty,speedprofile"`
}

// BlockProofRequest asks for an inclusion proof of a record in a block.
type BlockProofRequest struct {
	Record interface{} `json:"record" binding:"required"`
}
