// Package api exposes the campaign operations over HTTP.
package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/eligibility"
	"solana-mint-campaign/internal/items"
	"solana-mint-campaign/internal/lifecycle"
	"solana-mint-campaign/internal/mint"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
	"solana-mint-campaign/internal/watch"
)

const (
	defaultReceiptLimit = 50
	maxReceiptLimit     = 500
)

// Services collects everything the handlers call.
type Services struct {
	Builder    *campaign.Builder
	Loader     *items.Loader
	Minter     *mint.Minter
	Lifecycle  *lifecycle.Controller
	Engine     *eligibility.Engine
	AllowLists *allowlist.Manager
	Campaigns  storage.CampaignStore
	Receipts   storage.ReceiptStore

	// Activity is optional; without it the activity endpoint reports 501.
	Activity storage.MintActivityStore

	// Watcher, when set, follows each created campaign's account so the
	// mirrored counters track the ledger.
	Watcher *watch.Watcher
}

// Handler serves the campaign API.
type Handler struct {
	s Services
}

// NewHandler creates an API handler.
func NewHandler(s Services) *Handler {
	return &Handler{s: s}
}

type groupRequest struct {
	Label        string   `json:"label" binding:"required"`
	DisplayLabel string   `json:"displayLabel"`
	StartDate    *int64   `json:"startDate"`
	EndDate      *int64   `json:"endDate"`
	Price        int64    `json:"price"`
	MintLimit    *int     `json:"mintLimit"`
	Supply       *int     `json:"supply"`
	SplToken     string   `json:"splToken"`
	Restricted   bool     `json:"restricted"`
	FreezePeriod *int64   `json:"freezePeriod"`
	Wallets      []string `json:"wallets"`
}

func (r *groupRequest) toConfig() campaign.GroupConfig {
	return campaign.GroupConfig{
		Group: domain.Group{
			Label:        r.Label,
			DisplayLabel: r.DisplayLabel,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			Price:        r.Price,
			MintLimit:    r.MintLimit,
			Supply:       r.Supply,
			SplToken:     r.SplToken,
			Restricted:   r.Restricted,
			FreezePeriod: r.FreezePeriod,
		},
		Wallets: r.Wallets,
	}
}

type createCampaignRequest struct {
	ItemsAvailable int            `json:"itemsAvailable" binding:"required,gt=0"`
	Groups         []groupRequest `json:"groups" binding:"required,min=1,dive"`
}

// CreateCampaign handles POST /campaigns.
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg := campaign.CampaignConfig{ItemsAvailable: req.ItemsAvailable}
	for i := range req.Groups {
		cfg.Groups = append(cfg.Groups, req.Groups[i].toConfig())
	}

	created, err := h.s.Builder.CreateCampaign(c.Request.Context(), cfg)
	if err != nil {
		fail(c, err)
		return
	}

	if h.s.Watcher != nil {
		// The subscription outlives the request.
		if err := h.s.Watcher.Watch(context.Background(), created.Address); err != nil {
			log.Printf("[api] watch campaign %s: %v", created.Address, err)
		}
	}

	c.JSON(http.StatusCreated, created)
}

// AddGroup handles POST /campaigns/:address/groups.
func (h *Handler) AddGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	group, err := h.s.Builder.AddGroup(c.Request.Context(), c.Param("address"), req.toConfig())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

type setAllowListRequest struct {
	Wallets []string `json:"wallets" binding:"required"`
}

type setAllowListResponse struct {
	Root        string `json:"root"`
	WalletCount int    `json:"walletCount"`
}

// SetAllowList handles PUT /campaigns/:address/groups/:label/allowlist.
func (h *Handler) SetAllowList(c *gin.Context) {
	var req setAllowListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	root, err := h.s.AllowLists.SetAllowList(c.Request.Context(), c.Param("address"), c.Param("label"), req.Wallets)
	if err != nil {
		fail(c, err)
		return
	}

	members, err := h.s.AllowLists.Members(c.Request.Context(), c.Param("address"), c.Param("label"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, setAllowListResponse{
		Root:        hex.EncodeToString(root),
		WalletCount: len(members),
	})
}

type itemRequest struct {
	Name   string `json:"name" binding:"required"`
	URI    string `json:"uri" binding:"required"`
	Rarity string `json:"rarity"`
}

type loadItemsRequest struct {
	Items []itemRequest `json:"items" binding:"required,min=1,dive"`

	// StartIndex places the items at an absolute position, used to refill a
	// failed range from a 207 manifest. Omitted means append.
	StartIndex *int `json:"startIndex"`
}

// LoadItems handles POST /campaigns/:address/items. A partial load returns
// 207 with the manifest so the caller can retry the failed ranges.
func (h *Handler) LoadItems(c *gin.Context) {
	var req loadItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	toLoad := make([]domain.Item, len(req.Items))
	for i, it := range req.Items {
		toLoad[i] = domain.Item{Name: it.Name, URI: it.URI, Rarity: it.Rarity}
	}

	startIndex := items.AppendPosition
	if req.StartIndex != nil {
		startIndex = *req.StartIndex
	}

	result, err := h.s.Loader.LoadItems(c.Request.Context(), c.Param("address"), startIndex, toLoad)
	if err != nil {
		var partial *campaign.PartialLoadError
		if errors.As(err, &partial) {
			c.JSON(http.StatusMultiStatus, result)
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type mintRequest struct {
	Label string `json:"label" binding:"required"`

	// BuyerSecret is the custodial buyer keypair, base58 encoded.
	BuyerSecret string `json:"buyerSecret" binding:"required"`

	Count int `json:"count"`
}

// Mint handles POST /campaigns/:address/mint.
func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	buyer, err := solana.KeypairFromBase58(req.BuyerSecret)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid buyer secret: %w", err))
		return
	}

	if req.Count > 1 {
		results, err := h.s.Minter.MintMany(c.Request.Context(), c.Param("address"), req.Label, buyer, req.Count)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
		return
	}

	result, err := h.s.Minter.Mint(c.Request.Context(), c.Param("address"), req.Label, buyer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type thawRequest struct {
	// Asset thaws one asset; empty thaws everything thawable.
	Asset string `json:"asset"`
}

type thawResponse struct {
	Thawed []string `json:"thawed"`
}

// Thaw handles POST /campaigns/:address/thaw.
func (h *Handler) Thaw(c *gin.Context) {
	var req thawRequest
	// An empty body means thaw everything thawable.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	if req.Asset != "" {
		if _, err := h.s.Lifecycle.Thaw(c.Request.Context(), req.Asset); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, thawResponse{Thawed: []string{req.Asset}})
		return
	}

	thawed, err := h.s.Lifecycle.ThawBatch(c.Request.Context(), c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	if thawed == nil {
		thawed = []string{}
	}
	c.JSON(http.StatusOK, thawResponse{Thawed: thawed})
}

type unlockFundsRequest struct {
	Label string `json:"label" binding:"required"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

// UnlockFunds handles POST /campaigns/:address/unlock-funds.
func (h *Handler) UnlockFunds(c *gin.Context) {
	var req unlockFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	sig, err := h.s.Lifecycle.UnlockFunds(c.Request.Context(), c.Param("address"), req.Label)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signatureResponse{Signature: sig})
}

// GetEligibility handles GET /campaigns/:address/eligibility.
func (h *Handler) GetEligibility(c *gin.Context) {
	label := c.Query("label")
	wallet := c.Query("wallet")
	if label == "" || wallet == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("label and wallet query parameters are required"))
		return
	}

	eval, err := h.s.Engine.Evaluate(c.Request.Context(), c.Param("address"), label, wallet)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

// ListReceipts handles GET /campaigns/:address/receipts.
func (h *Handler) ListReceipts(c *gin.Context) {
	limit := queryInt(c, "limit", defaultReceiptLimit)
	if limit <= 0 || limit > maxReceiptLimit {
		limit = defaultReceiptLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	filter := domain.ReceiptFilter{
		GroupLabel:   c.Query("label"),
		BuyerAddress: c.Query("buyer"),
	}

	receipts, err := h.s.Receipts.List(c.Request.Context(), c.Param("address"), filter, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	if receipts == nil {
		receipts = []*domain.Receipt{}
	}
	c.JSON(http.StatusOK, receipts)
}

// GetActivity handles GET /campaigns/:address/activity.
func (h *Handler) GetActivity(c *gin.Context) {
	if h.s.Activity == nil {
		sendError(c, http.StatusNotImplemented, fmt.Errorf("activity storage is not configured"))
		return
	}

	start := int64(queryInt(c, "start", 0))
	end := int64(queryInt(c, "end", 0))
	if end == 0 {
		end = 1<<63 - 1
	}

	points, err := h.s.Activity.GetByCampaignTimeRange(c.Request.Context(), c.Param("address"), start, end)
	if err != nil {
		fail(c, err)
		return
	}
	if points == nil {
		points = []*domain.MintActivityPoint{}
	}
	c.JSON(http.StatusOK, points)
}

type groupStats struct {
	domain.Group
	MintCount int `json:"mintCount"`
}

type campaignResponse struct {
	*domain.Campaign
	Groups []groupStats `json:"groups"`
}

// GetCampaign handles GET /campaigns/:address with per-group mint counts.
func (h *Handler) GetCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	stored, err := h.s.Campaigns.GetByAddress(ctx, address)
	if err != nil {
		fail(c, err)
		return
	}

	resp := campaignResponse{Campaign: stored}
	for _, g := range stored.Groups {
		count, err := h.s.Receipts.CountByGroup(ctx, address, g.Label)
		if err != nil {
			fail(c, err)
			return
		}
		resp.Groups = append(resp.Groups, groupStats{Group: g, MintCount: count})
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteCampaign handles DELETE /campaigns/:address. The campaign is
// soft-deleted; the purge scheduler removes it for good once it ages past
// the configured threshold. On-ledger accounts are untouched.
func (h *Handler) DeleteCampaign(c *gin.Context) {
	address := c.Param("address")

	if err := h.s.Campaigns.SoftDelete(c.Request.Context(), address, time.Now().UnixMilli()); err != nil {
		fail(c, err)
		return
	}
	if h.s.Watcher != nil {
		h.s.Watcher.Unwatch(address)
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
