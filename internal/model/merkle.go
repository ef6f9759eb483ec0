package model

// Side tells a verifier which side of the concatenation a sibling hash goes
// on. Concatenation order is not commutative, so proofs carry it explicitly.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ProofStep is one level of an inclusion proof: the sibling subtree hash and
// the side it sits on.
type ProofStep struct {
	Hash string `json:"hash"`
	Side Side   `json:"side"`
}

// TreeStats summarizes a Merkle tree by traversal.
type TreeStats struct {
	TotalNodes int    `json:"total_nodes"`
	LeafNodes  int    `json:"leaf_nodes"`
	TreeHeight int    `json:"tree_height"`
	RootHash   string `json:"root_hash,omitempty"`
	DataItems  int    `json:"data_items"`
}

// TreeNodeView is a read-only projection of a tree node for dashboards.
type TreeNodeView struct {
	Hash     string         `json:"hash"`
	FullHash string         `json:"full_hash"`
	Level    int            `json:"level"`
	IsLeaf   bool           `json:"is_leaf"`
	Data     string         `json:"data,omitempty"`
	Children []TreeNodeView `json:"children,omitempty"`
}
