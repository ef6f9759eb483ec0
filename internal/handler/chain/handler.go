package chain

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/medledger/chain-api/internal/handler"
	"github.com/medledger/chain-api/internal/ledger"
	"github.com/medledger/chain-api/internal/merkle"
	"github.com/medledger/chain-api/internal/model"
)

// Handler serves the chain ledger surface: mining, block reads, integrity
// checks and inclusion proofs.
type Handler struct {
	ledger *ledger.Ledger

	// Rebuilt Merkle trees are cached per block; blocks are immutable once
	// mined, so entries only expire to bound memory.
	trees *cache.Cache
}

func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{
		ledger: l,
		trees:  cache.New(15*time.Minute, time.Hour),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	blocks := r.Group("/blocks")
	{
		blocks.POST("/mine", h.MineBlock)
		blocks.POST("/mine-batch", h.MineBlocks)
		blocks.GET("", h.ListBlocks)
		blocks.GET("/:index", h.GetBlock)
		blocks.GET("/:index/integrity", h.VerifyIntegrity)
		blocks.GET("/:index/tree", h.GetTree)
		blocks.POST("/:index/proof", h.GetProof)
	}
	chainGroup := r.Group("/chain")
	{
		chainGroup.GET("/validate", h.ValidateChain)
		chainGroup.GET("/stats", h.GetStats)
	}
}

func (h *Handler) MineBlock(c *gin.Context) {
	var req model.MineBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if req.Profile == "" {
		req.Profile = model.ProfileCPU
	}

	result, err := h.ledger.MineBlock(c.Request.Context(), req.Data, req.Difficulty, req.Profile)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) MineBlocks(c *gin.Context) {
	var req model.MineBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if req.Profile == "" {
		req.Profile = model.ProfileCPU
	}

	stats, err := h.ledger.MineBlocks(c.Request.Context(), req.Count, req.Difficulty, req.BlockSizeKB, req.Profile)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(stats))
}

func (h *Handler) ListBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"blocks": h.ledger.Blocks(),
		"length": h.ledger.Len(),
	}))
}

func (h *Handler) GetBlock(c *gin.Context) {
	index, ok := h.blockIndex(c)
	if !ok {
		return
	}
	block, err := h.ledger.Block(index)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(block))
}

func (h *Handler) VerifyIntegrity(c *gin.Context) {
	index, ok := h.blockIndex(c)
	if !ok {
		return
	}
	result := h.ledger.VerifyMerkleIntegrity(index)
	status := http.StatusOK
	if result.Error != "" {
		status = http.StatusNotFound
	}
	c.JSON(status, handler.NewSuccessResponse(result))
}

// GetTree returns the block's Merkle tree visualization and node counts.
func (h *Handler) GetTree(c *gin.Context) {
	index, ok := h.blockIndex(c)
	if !ok {
		return
	}
	tree, err := h.cachedTree(index)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"root_hash": tree.RootHash(),
		"stats":     tree.Stats(),
		"tree":      tree.Visualize(),
	}))
}

func (h *Handler) GetProof(c *gin.Context) {
	index, ok := h.blockIndex(c)
	if !ok {
		return
	}
	var req model.BlockProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.ledger.MerkleProof(index, req.Record)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) ValidateChain(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"chain_valid": h.ledger.IsChainValid(),
		"length":      h.ledger.Len(),
	}))
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.ledger.Stats()))
}

func (h *Handler) blockIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid block index"))
		return 0, false
	}
	return index, true
}

func (h *Handler) cachedTree(index int) (*merkle.Tree, error) {
	key := strconv.Itoa(index)
	if cached, ok := h.trees.Get(key); ok {
		return cached.(*merkle.Tree), nil
	}
	tree, err := h.ledger.BlockTree(index)
	if err != nil {
		return nil, err
	}
	h.trees.Set(key, tree, cache.DefaultExpiration)
	return tree, nil
}
