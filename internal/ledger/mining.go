package ledger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/medledger/chain-api/internal/merkle"
	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
)

// Simulated per-attempt delay, charged once per delayEvery attempts. The
// profile models relative CPU/GPU throughput and never affects correctness.
const delayEvery = 1000

func profileDelay(profile model.SpeedProfile) time.Duration {
	if profile == model.ProfileGPU {
		return 1 * time.Microsecond * delayEvery
	}
	return 100 * time.Microsecond * delayEvery
}

// MineBlock builds a Merkle tree over the payload's records, constructs a
// candidate block on the current tip and searches nonces from 0 until the
// block hash carries the required number of leading zero hex characters.
// Cancelling the context discards the partially mined block; nothing is
// ever partially appended.
func (l *Ledger) MineBlock(ctx context.Context, data interface{}, difficulty int, profile model.SpeedProfile) (*model.MiningResult, error) {
	if difficulty < 1 {
		return nil, errors.BadRequest("difficulty must be at least 1", nil)
	}
	if !profile.Valid() {
		profile = model.ProfileCPU
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records := decomposeRecords(data)
	tree, err := merkle.FromValues(records)
	if err != nil {
		return nil, err
	}

	tip := l.blocks[len(l.blocks)-1]
	block := &model.Block{
		Index:            len(l.blocks),
		Timestamp:        l.now().Format(time.RFC3339Nano),
		Data:             data,
		MerkleRoot:       tree.RootHash(),
		TransactionCount: tree.Size(),
		PreviousHash:     tip.Hash,
		Nonce:            0,
	}

	target := strings.Repeat("0", difficulty)
	delay := profileDelay(profile)
	start := time.Now()
	var attempts uint64

	for {
		block.Hash = blockHash(block)
		attempts++

		if strings.HasPrefix(block.Hash, target) {
			break
		}
		block.Nonce++

		if attempts%delayEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			time.Sleep(delay)
		}
	}

	elapsed := time.Since(start)
	l.blocks = append(l.blocks, block)

	hashRate := float64(attempts)
	if secs := elapsed.Seconds(); secs > 0 {
		hashRate = float64(attempts) / secs
	}

	if l.metrics != nil {
		l.metrics.BlocksMined.Inc()
		l.metrics.HashAttempts.Add(float64(attempts))
		l.metrics.ChainHeight.Set(float64(len(l.blocks)))
		l.metrics.MiningDuration.WithLabelValues(strconv.Itoa(difficulty), string(profile)).Observe(elapsed.Seconds())
	}
	if l.log != nil {
		l.log.Info("block mined",
			"index", block.Index,
			"difficulty", difficulty,
			"attempts", attempts,
			"hash", block.Hash,
		)
	}

	return &model.MiningResult{
		Block:        block,
		MiningTime:   elapsed,
		HashAttempts: attempts,
		HashRate:     hashRate,
	}, nil
}

// MineBlocks mines count blocks of synthetic healthcare payload and
// aggregates the run's timing and attempt statistics.
func (l *Ledger) MineBlocks(ctx context.Context, count, difficulty, blockSizeKB int, profile model.SpeedProfile) (*model.MiningRunStats, error) {
	if count < 1 {
		return nil, errors.BadRequest("count must be at least 1", nil)
	}

	stats := &model.MiningRunStats{}
	start := time.Now()

	for i := 0; i < count; i++ {
		payload := GenerateHealthcareData(blockSizeKB)
		result, err := l.MineBlock(ctx, payload, difficulty, profile)
		if err != nil {
			return nil, err
		}
		stats.Blocks = append(stats.Blocks, result.Block)
		stats.BlockTimes = append(stats.BlockTimes, result.MiningTime)
		stats.TotalHashes += result.HashAttempts
	}

	stats.TotalTime = time.Since(start)
	var sum time.Duration
	for _, d := range stats.BlockTimes {
		sum += d
	}
	stats.AvgBlockTime = sum / time.Duration(len(stats.BlockTimes))
	if secs := stats.TotalTime.Seconds(); secs > 0 {
		stats.HashRate = float64(stats.TotalHashes) / secs
	}
	return stats, nil
}

// decomposeRecords turns a block payload into the ordered record list the
// Merkle tree commits to. A JSON string payload is parsed: an array is used
// as-is, an object becomes a single record, anything unparsable is wrapped.
func decomposeRecords(data interface{}) []interface{} {
	switch v := data.(type) {
	case string:
		var parsed interface{}
		if err := canonical.Unmarshal([]byte(v), &parsed); err != nil {
			return []interface{}{map[string]interface{}{"raw_data": v}}
		}
		if list, ok := parsed.([]interface{}); ok {
			return list
		}
		return []interface{}{parsed}
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}

