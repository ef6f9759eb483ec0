package merkle

import (
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
)

// Node is a Merkle tree node. Leaves own the serialized record; internal
// nodes own exactly two children. Hash is fixed at construction and is a
// pure function of the node's descendants.
type Node struct {
	Data  string
	Left  *Node
	Right *Node
	Hash  string
}

// IsLeaf reports whether the node holds raw data.
func (n *Node) IsLeaf() bool {
	return n.Data != "" && n.Left == nil && n.Right == nil
}

func newLeaf(data string) *Node {
	return &Node{Data: data, Hash: canonical.HashHex(data)}
}

// Internal hash covers the concatenation of the children's hex hashes.
func newInternal(left, right *Node) *Node {
	return &Node{Left: left, Right: right, Hash: canonical.HashHex(left.Hash + right.Hash)}
}

// Tree is an immutable Merkle tree over an ordered record sequence.
// Integrating a new record means building a new tree.
type Tree struct {
	root    *Node
	levels  [][]*Node // levels[0] holds the leaves in input order
	leafIdx map[string]int
	records []string
}

// New builds a tree over the given serialized records. Duplicate records are
// rejected: a proof for one occurrence would silently validate any other, so
// trees with duplicates have no unambiguous inclusion proofs.
func New(records []string) (*Tree, error) {
	t := &Tree{
		leafIdx: make(map[string]int, len(records)),
		records: append([]string(nil), records...),
	}
	if len(records) == 0 {
		return t, nil
	}

	leaves := make([]*Node, 0, len(records))
	for i, data := range records {
		if _, seen := t.leafIdx[data]; seen {
			return nil, errors.Newf(errors.ErrDuplicateRecord, "duplicate record at position %d", i)
		}
		t.leafIdx[data] = i
		leaves = append(leaves, newLeaf(data))
	}
	t.levels = append(t.levels, leaves)

	// Pair adjacent nodes level by level; an odd node out pairs with itself.
	for nodes := leaves; len(nodes) > 1; {
		next := make([]*Node, 0, (len(nodes)+1)/2)
		for i := 0; i < len(nodes); i += 2 {
			left := nodes[i]
			right := left
			if i+1 < len(nodes) {
				right = nodes[i+1]
			}
			next = append(next, newInternal(left, right))
		}
		t.levels = append(t.levels, next)
		nodes = next
	}
	t.root = t.levels[len(t.levels)-1][0]
	return t, nil
}

// FromValues canonically serializes each value and builds a tree over the
// resulting strings, so identical content hashes identically regardless of
// map-key order.
func FromValues(values []interface{}) (*Tree, error) {
	records := make([]string, 0, len(values))
	for _, v := range values {
		s, err := canonical.MarshalString(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrPayloadInvalid, "record not serializable", err)
		}
		records = append(records, s)
	}
	return New(records)
}

// RootHash returns the root's hash, or "" for an empty tree.
func (t *Tree) RootHash() string {
	if t.root == nil {
		return ""
	}
	return t.root.Hash
}

// Size returns the number of records the tree was built over.
func (t *Tree) Size() int {
	return len(t.records)
}

// Root returns the root node, nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.root
}
