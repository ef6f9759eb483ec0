package ledger

import (
	"sync"
	"time"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/errors"
	"github.com/medledger/chain-api/pkg/logger"
	"github.com/medledger/chain-api/pkg/metrics"
)

const genesisData = "Genesis Block - Healthcare Blockchain"

// Ledger owns an append-only chain of blocks. All mutation goes through the
// mutex so at most one mining operation is in flight per chain: mining reads
// the current tip and must not race with another append.
type Ledger struct {
	mu      sync.Mutex
	blocks  []*model.Block
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a ledger holding only the genesis block.
func New(log *logger.Logger, m *metrics.Metrics) *Ledger {
	l := &Ledger{
		log:     log,
		metrics: m,
		now:     time.Now,
	}
	l.createGenesisBlock()
	return l
}

func (l *Ledger) createGenesisBlock() {
	genesis := &model.Block{
		Index:        0,
		Timestamp:    l.now().Format(time.RFC3339Nano),
		Data:         genesisData,
		PreviousHash: "",
		Nonce:        0,
	}
	genesis.Hash = blockHash(genesis)
	l.blocks = append(l.blocks, genesis)
	if l.metrics != nil {
		l.metrics.ChainHeight.Set(float64(len(l.blocks)))
	}
	if l.log != nil {
		l.log.Info("genesis block created", "hash", genesis.Hash)
	}
}

// Len returns the number of blocks in the chain.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// Block returns the block at the given index.
func (l *Ledger) Block(index int) (*model.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.blocks) {
		return nil, errors.Newf(errors.ErrBlockOutOfRange, "block index %d out of range", index)
	}
	return l.blocks[index], nil
}

// Blocks returns the chain in order. The slice is a copy; the blocks are not.
func (l *Ledger) Blocks() []*model.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// IsChainValid walks the chain checking every non-genesis block's stored
// hash against its recomputed digest and its link to the prior block's hash.
func (l *Ledger) IsChainValid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isChainValidLocked()
}

func (l *Ledger) isChainValidLocked() bool {
	for i := 1; i < len(l.blocks); i++ {
		current, previous := l.blocks[i], l.blocks[i-1]
		if current.Hash != blockHash(current) {
			return false
		}
		if current.PreviousHash != previous.Hash {
			return false
		}
	}
	return true
}

// Stats returns a read-only chain summary.
func (l *Ledger) Stats() model.ChainStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := model.ChainStats{
		TotalBlocks: len(l.blocks),
		ChainValid:  l.isChainValidLocked(),
	}
	if len(l.blocks) > 0 {
		stats.LatestBlockHash = l.blocks[len(l.blocks)-1].Hash
	}
	return stats
}
