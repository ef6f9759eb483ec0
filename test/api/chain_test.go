package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mineBlock(t *testing.T, data interface{}) map[string]interface{} {
	t.Helper()
	resp := makeRequest(t, http.MethodPost, "/api/v1/blocks/mine", map[string]interface{}{
		"data":       data,
		"difficulty": 2,
	}, "")
	require.True(t, resp.IsSuccess(), "mining failed: %s", resp.Message)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Block map[string]interface{} `json:"block"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	return result.Block
}

func TestMineAndReadBlock(t *testing.T) {
	records := []map[string]interface{}{
		{"patient_id": "P100", "record_type": "lab_results"},
		{"patient_id": "P101", "record_type": "vital_signs"},
	}
	block := mineBlock(t, records)

	hash, _ := block["hash"].(string)
	assert.True(t, len(hash) == 64 && hash[:2] == "00", "hash %q should carry the difficulty prefix", hash)
	assert.NotEmpty(t, block["merkle_root"])
	assert.EqualValues(t, 2, block["transaction_count"])

	index := int(block["index"].(float64))
	resp := makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/blocks/%d", index), nil, "")
	require.True(t, resp.IsSuccess())
	stored := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(resp.Data, &stored))
	assert.Equal(t, hash, stored["hash"])
}

func TestGetBlockOutOfRange(t *testing.T) {
	resp := makeRequest(t, http.MethodGet, "/api/v1/blocks/99999", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = makeRequest(t, http.MethodGet, "/api/v1/blocks/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMineBlockValidation(t *testing.T) {
	resp := makeRequest(t, http.MethodPost, "/api/v1/blocks/mine", map[string]interface{}{
		"data":       "records",
		"difficulty": 0,
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = makeRequest(t, http.MethodPost, "/api/v1/blocks/mine", map[string]interface{}{
		"data":       "records",
		"difficulty": 1,
		"profile":    "QUANTUM",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlockIntegrityAndTree(t *testing.T) {
	block := mineBlock(t, []string{"rec-a", "rec-b", "rec-c"})
	index := int(block["index"].(float64))

	resp := makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/blocks/%d/integrity", index), nil, "")
	require.True(t, resp.IsSuccess())
	result := resp.DataMap(t)
	assert.Equal(t, true, result["valid"])
	assert.Equal(t, block["merkle_root"], result["stored_root"])

	resp = makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/blocks/%d/tree", index), nil, "")
	require.True(t, resp.IsSuccess())
	tree := resp.DataMap(t)
	assert.Equal(t, block["merkle_root"], tree["root_hash"])
	assert.NotNil(t, tree["stats"])
	assert.NotNil(t, tree["tree"])
}

func TestGenesisIntegrityNote(t *testing.T) {
	resp := makeRequest(t, http.MethodGet, "/api/v1/blocks/0/integrity", nil, "")
	require.True(t, resp.IsSuccess())
	result := resp.DataMap(t)
	assert.Equal(t, true, result["valid"])
	assert.NotEmpty(t, result["note"])
}

func TestBlockProof(t *testing.T) {
	records := []map[string]interface{}{
		{"patient_id": "P200", "record_type": "imaging"},
		{"patient_id": "P201", "record_type": "billing"},
		{"patient_id": "P202", "record_type": "prescriptions"},
	}
	block := mineBlock(t, records)
	index := int(block["index"].(float64))

	resp := makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/blocks/%d/proof", index), map[string]interface{}{
		"record": records[1],
	}, "")
	require.True(t, resp.IsSuccess(), "proof failed: %s", resp.Message)
	result := resp.DataMap(t)
	assert.Equal(t, true, result["record_verified"])
	assert.Equal(t, block["merkle_root"], result["root_hash"])

	resp = makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/blocks/%d/proof", index), map[string]interface{}{
		"record": map[string]interface{}{"patient_id": "P999"},
	}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMineBatch(t *testing.T) {
	resp := makeRequest(t, http.MethodPost, "/api/v1/blocks/mine-batch", map[string]interface{}{
		"count":         2,
		"difficulty":    1,
		"block_size_kb": 1,
	}, "")
	require.True(t, resp.IsSuccess(), "batch mining failed: %s", resp.Message)
	result := resp.DataMap(t)

	blocks, ok := result["blocks"].([]interface{})
	require.True(t, ok)
	assert.Len(t, blocks, 2)
	assert.NotZero(t, result["total_hashes"])
}

func TestChainValidateAndStats(t *testing.T) {
	mineBlock(t, "single record")

	resp := makeRequest(t, http.MethodGet, "/api/v1/chain/validate", nil, "")
	require.True(t, resp.IsSuccess())
	assert.Equal(t, true, resp.DataMap(t)["chain_valid"])

	resp = makeRequest(t, http.MethodGet, "/api/v1/chain/stats", nil, "")
	require.True(t, resp.IsSuccess())
	stats := resp.DataMap(t)
	assert.Equal(t, true, stats["chain_valid"])
	assert.NotEmpty(t, stats["latest_block_hash"])
	assert.GreaterOrEqual(t, stats["total_blocks"].(float64), 2.0)
}
