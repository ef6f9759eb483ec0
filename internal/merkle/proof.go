package merkle

import (
	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
)

// Proof returns the sibling-hash path from the record's leaf to the root.
// A single-record tree has an empty proof; a missing record is a typed
// ErrRecordNotFound, never an empty proof.
func (t *Tree) Proof(record string) ([]model.ProofStep, error) {
	if t.root == nil {
		return nil, errors.New(errors.ErrEmptyTree, "tree has no records")
	}
	idx, ok := t.leafIdx[record]
	if !ok {
		return nil, errors.New(errors.ErrRecordNotFound, "record not in tree")
	}

	proof := make([]model.ProofStep, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		if idx%2 == 0 {
			sibling := idx // odd node out pairs with itself
			if idx+1 < len(level) {
				sibling = idx + 1
			}
			proof = append(proof, model.ProofStep{Hash: level[sibling].Hash, Side: model.SideRight})
		} else {
			proof = append(proof, model.ProofStep{Hash: level[idx-1].Hash, Side: model.SideLeft})
		}
		idx /= 2
	}
	return proof, nil
}

// ProofForValue canonically serializes v and returns its proof.
func (t *Tree) ProofForValue(v interface{}) ([]model.ProofStep, error) {
	s, err := canonical.MarshalString(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrPayloadInvalid, "record not serializable", err)
	}
	return t.Proof(s)
}

// VerifyProof folds the proof steps over the record's leaf hash and compares
// the result to rootHash. It needs only the sibling path, never the tree.
// An empty proof is valid only when the record hashes to the root directly
// (single-record tree).
func VerifyProof(record string, proof []model.ProofStep, rootHash string) bool {
	current := canonical.HashHex(record)
	for _, step := range proof {
		if step.Side == model.SideLeft {
			current = canonical.HashHex(step.Hash + current)
		} else {
			current = canonical.HashHex(current + step.Hash)
		}
	}
	return current == rootHash
}

// VerifyValueProof is VerifyProof over a canonically serialized value.
func VerifyValueProof(v interface{}, proof []model.ProofStep, rootHash string) (bool, error) {
	s, err := canonical.MarshalString(v)
	if err != nil {
		return false, errors.Wrap(errors.ErrPayloadInvalid, "record not serializable", err)
	}
	return VerifyProof(s, proof, rootHash), nil
}
