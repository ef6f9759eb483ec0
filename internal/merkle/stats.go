package merkle

import "github.com/medledger/chain-api/internal/model"

// Stats traverses the tree and summarizes it. A self-paired node is reached
// through both child pointers and counts twice, matching the shape the
// duplication actually produces.
func (t *Tree) Stats() model.TreeStats {
	if t.root == nil {
		return model.TreeStats{}
	}
	return model.TreeStats{
		TotalNodes: countNodes(t.root),
		LeafNodes:  countLeaves(t.root),
		TreeHeight: height(t.root),
		RootHash:   t.root.Hash,
		DataItems:  len(t.records),
	}
}

func countNodes(n *Node) int {
	if n == nil {
		return 0
	}
	return 1 + countNodes(n.Left) + countNodes(n.Right)
}

func countLeaves(n *Node) int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return countLeaves(n.Left) + countLeaves(n.Right)
}

// height counts nodes on the longest leaf-to-root path; a single-node tree
// has height 1.
func height(n *Node) int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	lh, rh := height(n.Left), height(n.Right)
	if lh > rh {
		return 1 + lh
	}
	return 1 + rh
}

// Visualize returns a nested read-only view of the tree for dashboards.
func (t *Tree) Visualize() *model.TreeNodeView {
	if t.root == nil {
		return nil
	}
	view := visualize(t.root, 0)
	return &view
}

func visualize(n *Node, level int) model.TreeNodeView {
	view := model.TreeNodeView{
		Hash:     abbreviate(n.Hash),
		FullHash: n.Hash,
		Level:    level,
		IsLeaf:   n.IsLeaf(),
	}
	if n.IsLeaf() {
		view.Data = n.Data
		return view
	}
	view.Children = []model.TreeNodeView{
		visualize(n.Left, level+1),
		visualize(n.Right, level+1),
	}
	return view
}

func abbreviate(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}
