package rest

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/petalhub/ranking-engine/internal/api/middleware"
	"github.com/petalhub/ranking-engine/internal/ledger"
	"github.com/petalhub/ranking-engine/internal/store"
	"github.com/petalhub/ranking-engine/internal/sweeper"
)

// VotingService accepts and inspects weekly votes
type VotingService interface {
	CastVote(ctx context.Context, voterID string, productID uint64) (*ledger.VoteReceipt, error)
	HasVotedThisWeek(ctx context.Context, voterID string, productID uint64) (bool, error)
}

// RankingService recomputes partition ranks on demand
type RankingService interface {
	RecomputePartition(ctx context.Context, category, subcategory string) ([]store.RankAssignment, error)
}

// SweepService runs one vote expiry sweep on demand
type SweepService interface {
	Sweep(ctx context.Context) (sweeper.SweepResult, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// CastVote records the authenticated caller's weekly vote for a product
	// POST /api/v1/products/:id/votes
	CastVote(c *gin.Context)

	// GetMyVote reports whether the caller already voted for a product this week
	// GET /api/v1/products/:id/votes/me
	GetMyVote(c *gin.Context)

	// GetRankings lists a partition's products in rank order
	// GET /api/v1/rankings?category=<category>&subcategory=<subcategory>
	GetRankings(c *gin.Context)

	// RecomputeRankings recomputes one partition's ranks (maintenance)
	// POST /api/v1/rankings/recompute
	RecomputeRankings(c *gin.Context)

	// SweepVotes runs one vote expiry sweep (maintenance, scheduler hook)
	// POST /api/v1/votes/sweep
	SweepVotes(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	voting VotingService
	ranker RankingService
	sweep  SweepService
	store  store.Store
}

// NewHandler creates a new REST API handler
func NewHandler(voting VotingService, ranker RankingService, sweep SweepService, st store.Store) Handler {
	return &handler{
		voting: voting,
		ranker: ranker,
		sweep:  sweep,
		store:  st,
	}
}

// castVoteResponse is the payload returned for an accepted vote
type castVoteResponse struct {
	ProductID uint64 `json:"product_id"`
	VoteCount int    `json:"vote_count"`
	Rank      int    `json:"rank"`
}

// rankedProduct is one row of a rankings listing
type rankedProduct struct {
	ProductID   uint64 `json:"product_id"`
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	VoteCount   int    `json:"vote_count"`
	ReviewCount int    `json:"review_count"`
}

// recomputeRequest is the body of a maintenance recompute call
type recomputeRequest struct {
	Category    string `json:"category" binding:"required"`
	Subcategory string `json:"subcategory" binding:"required"`
}

// CastVote records the authenticated caller's weekly vote for a product
func (h *handler) CastVote(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	voterID := middleware.VoterID(c)
	if voterID == "" {
		respondBadRequest(c, "Voter identity is required")
		return
	}

	receipt, err := h.voting.CastVote(c.Request.Context(), voterID, productID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, castVoteResponse{
		ProductID: receipt.ProductID,
		VoteCount: receipt.VoteCount,
		Rank:      receipt.Rank,
	})
}

// GetMyVote reports whether the caller already voted for a product this week
func (h *handler) GetMyVote(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	voterID := middleware.VoterID(c)
	if voterID == "" {
		respondBadRequest(c, "Voter identity is required")
		return
	}

	voted, err := h.voting.HasVotedThisWeek(c.Request.Context(), voterID, productID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"voted_this_week": voted})
}

// GetRankings lists a partition's products in rank order
func (h *handler) GetRankings(c *gin.Context) {
	category := c.Query("category")
	subcategory := c.Query("subcategory")
	if category == "" || subcategory == "" {
		respondBadRequest(c, "category and subcategory are required")
		return
	}

	products, err := h.store.GetProductsByPartition(c.Request.Context(), category, subcategory)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	ranked := make([]rankedProduct, 0, len(products))
	for _, p := range products {
		ranked = append(ranked, rankedProduct{
			ProductID:   p.ID,
			Name:        p.Name,
			Rank:        p.Rank,
			VoteCount:   p.VoteCount,
			ReviewCount: p.ReviewCount,
		})
	}
	sortRanked(ranked)

	c.JSON(http.StatusOK, gin.H{"products": ranked})
}

// RecomputeRankings recomputes one partition's ranks
func (h *handler) RecomputeRankings(c *gin.Context) {
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	assignments, err := h.ranker.RecomputePartition(c.Request.Context(), req.Category, req.Subcategory)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if assignments == nil {
		respondNotFound(c, "No products in partition")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products_ranked": len(assignments)})
}

// SweepVotes runs one vote expiry sweep
func (h *handler) SweepVotes(c *gin.Context) {
	result, err := h.sweep.Sweep(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseProductID reads the :id path parameter, responding 400 on garbage
func parseProductID(c *gin.Context) (uint64, bool) {
	raw := c.Param("id")
	productID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || productID == 0 {
		respondBadRequest(c, "Invalid product ID", raw)
		return 0, false
	}
	return productID, true
}

// sortRanked orders a rankings listing by rank ascending, unranked (0) last
func sortRanked(products []rankedProduct) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Rank == 0 {
			return false
		}
		if b.Rank == 0 {
			return true
		}
		return a.Rank < b.Rank
	})
}
