package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func testRecords(n int) []string {
	records := make([]string, n)
	for i := range records {
		records[i] = fmt.Sprintf(`{"patient_id":"PATIENT_%04d","record_type":"lab_result"}`, i)
	}
	return records
}

func TestBuildDeterministic(t *testing.T) {
	records := testRecords(7)

	t1, err := New(records)
	require.NoError(t, err)
	t2, err := New(records)
	require.NoError(t, err)

	assert.Equal(t, t1.RootHash(), t2.RootHash())
	assert.NotEmpty(t, t1.RootHash())
}

func TestCanonicalSerializationIgnoresKeyOrder(t *testing.T) {
	a := map[string]interface{}{"patient_id": "P1", "record_type": "diagnosis"}
	b := map[string]interface{}{"record_type": "diagnosis", "patient_id": "P1"}

	sa, err := canonical.MarshalString(a)
	require.NoError(t, err)
	sb, err := canonical.MarshalString(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestEmptyTree(t *testing.T) {
	tree, err := New(nil)
	require.NoError(t, err)

	assert.Empty(t, tree.RootHash())
	assert.Nil(t, tree.Root())
	assert.Zero(t, tree.Stats())

	_, err = tree.Proof("anything")
	assert.True(t, errors.HasCode(err, errors.ErrEmptyTree))
}

func TestSingleRecordTree(t *testing.T) {
	record := `{"patient_id":"P1"}`
	tree, err := New([]string{record})
	require.NoError(t, err)

	assert.Equal(t, sha256Hex(record), tree.RootHash())

	proof, err := tree.Proof(record)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, VerifyProof(record, proof, tree.RootHash()))
}

func TestProofRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 13} {
		t.Run(fmt.Sprintf("%d_records", n), func(t *testing.T) {
			records := testRecords(n)
			tree, err := New(records)
			require.NoError(t, err)

			for _, record := range records {
				proof, err := tree.Proof(record)
				require.NoError(t, err)
				assert.True(t, VerifyProof(record, proof, tree.RootHash()),
					"proof for %q must verify", record)
			}
		})
	}
}

func TestProofRejectsWrongRecord(t *testing.T) {
	records := testRecords(5)
	tree, err := New(records)
	require.NoError(t, err)

	proof, err := tree.Proof(records[2])
	require.NoError(t, err)

	assert.False(t, VerifyProof(records[3], proof, tree.RootHash()))
	assert.False(t, VerifyProof(records[2], proof, "0000"))
}

func TestProofRecordNotFound(t *testing.T) {
	tree, err := New(testRecords(4))
	require.NoError(t, err)

	_, err = tree.Proof(`{"patient_id":"UNKNOWN"}`)
	assert.True(t, errors.HasCode(err, errors.ErrRecordNotFound))
}

func TestDuplicateRecordsRejected(t *testing.T) {
	records := testRecords(3)
	records = append(records, records[1])

	_, err := New(records)
	assert.True(t, errors.HasCode(err, errors.ErrDuplicateRecord))
}

func TestTamperChangesRoot(t *testing.T) {
	records := testRecords(6)
	original, err := New(records)
	require.NoError(t, err)

	for i := range records {
		tampered := append([]string(nil), records...)
		tampered[i] = tampered[i][:len(tampered[i])-2] + `X"`
		tree, err := New(tampered)
		require.NoError(t, err)
		assert.NotEqual(t, original.RootHash(), tree.RootHash(),
			"changing record %d must change the root", i)
	}
}

func TestOddLeafPairsWithItself(t *testing.T) {
	records := testRecords(3)
	tree, err := New(records)
	require.NoError(t, err)

	leaf3 := sha256Hex(records[2])
	// Second level pairs the odd leaf with its own duplicate.
	right := tree.Root().Right
	require.NotNil(t, right)
	assert.Equal(t, sha256Hex(leaf3+leaf3), right.Hash)

	// The odd leaf's proof carries its own hash as the right sibling.
	proof, err := tree.Proof(records[2])
	require.NoError(t, err)
	require.Len(t, proof, 2)
	assert.Equal(t, model.ProofStep{Hash: leaf3, Side: model.SideRight}, proof[0])
}

func TestStats(t *testing.T) {
	tree, err := New(testRecords(4))
	require.NoError(t, err)

	stats := tree.Stats()
	assert.Equal(t, 7, stats.TotalNodes)
	assert.Equal(t, 4, stats.LeafNodes)
	assert.Equal(t, 3, stats.TreeHeight)
	assert.Equal(t, 4, stats.DataItems)
	assert.Equal(t, tree.RootHash(), stats.RootHash)
}

func TestStatsCountsDuplicatedOddNode(t *testing.T) {
	tree, err := New(testRecords(3))
	require.NoError(t, err)

	// The self-paired third leaf is reachable through both child pointers.
	stats := tree.Stats()
	assert.Equal(t, 7, stats.TotalNodes)
	assert.Equal(t, 4, stats.LeafNodes)
	assert.Equal(t, 3, stats.TreeHeight)
	assert.Equal(t, 3, stats.DataItems)
}

func TestFromValuesProofRoundTrip(t *testing.T) {
	values := []interface{}{
		map[string]interface{}{"patient_id": "P1", "record_type": "lab_result"},
		map[string]interface{}{"patient_id": "P2", "record_type": "diagnosis"},
		map[string]interface{}{"patient_id": "P3", "record_type": "vital_signs"},
	}
	tree, err := FromValues(values)
	require.NoError(t, err)

	proof, err := tree.ProofForValue(values[1])
	require.NoError(t, err)

	ok, err := VerifyValueProof(values[1], proof, tree.RootHash())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVisualize(t *testing.T) {
	tree, err := New(testRecords(2))
	require.NoError(t, err)

	view := tree.Visualize()
	require.NotNil(t, view)
	assert.False(t, view.IsLeaf)
	assert.Equal(t, tree.RootHash(), view.FullHash)
	require.Len(t, view.Children, 2)
	assert.True(t, view.Children[0].IsLeaf)
	assert.Equal(t, 1, view.Children[0].Level)
}
