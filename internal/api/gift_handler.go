package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Shimmy1219/gacha-web-sub003/internal/auth"
	"github.com/Shimmy1219/gacha-web-sub003/internal/giftchannel"
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/service"
)

// GiftResolver is the service surface the gift handler depends on.
type GiftResolver interface {
	Resolve(ctx context.Context, req service.ResolveRequest) (*giftchannel.Result, error)
	Audit(ctx context.Context, guildID, ownerID string, memberIDs []string) ([]giftchannel.Evaluation, error)
	History(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error)
}

// GiftHandler exposes gift-channel resolution and audit endpoints.
type GiftHandler struct {
	gifts GiftResolver
	// defaultCategoryID is used when a resolve request omits categoryId.
	defaultCategoryID string
}

func NewGiftHandler(gifts GiftResolver, defaultCategoryID string) *GiftHandler {
	return &GiftHandler{gifts: gifts, defaultCategoryID: defaultCategoryID}
}

type resolveRequest struct {
	MemberID    string `json:"memberId"`
	CategoryID  string `json:"categoryId"`
	DisplayName string `json:"displayName"`
	// AllowCreate defaults to true when absent.
	AllowCreate *bool `json:"allowCreate"`
}

type resolveResponse struct {
	ChannelID   string `json:"channelId"`
	Created     bool   `json:"created"`
	ParentID    string `json:"parentId,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	Outcome     string `json:"outcome"`
}

// Resolve handles POST /api/v1/guilds/:guildID/gift-channel. The authenticated
// user is treated as the guild owner for overwrite checks.
func (h *GiftHandler) Resolve(c echo.Context) error {
	guildID := c.Param("guildID")
	ownerID := auth.GetUserID(c)

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	if strings.TrimSpace(req.MemberID) == "" {
		return Error(c, http.StatusBadRequest, "MISSING_MEMBER_ID", "memberId is required")
	}

	categoryID := req.CategoryID
	if categoryID == "" {
		categoryID = h.defaultCategoryID
	}
	allowCreate := true
	if req.AllowCreate != nil {
		allowCreate = *req.AllowCreate
	}

	res, err := h.gifts.Resolve(c.Request().Context(), service.ResolveRequest{
		GuildID:             guildID,
		OwnerID:             ownerID,
		MemberID:            strings.TrimSpace(req.MemberID),
		CategoryID:          categoryID,
		ExpectedDisplayName: req.DisplayName,
		AllowCreate:         allowCreate,
	})
	if err != nil {
		return serviceErrorJSON(c, err)
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return successJSON(c, status, resolveResponse{
		ChannelID:   res.ChannelID,
		Created:     res.Created,
		ParentID:    res.ParentID,
		ChannelName: res.ChannelName,
		Outcome:     string(res.Outcome),
	})
}

// Audit handles GET /api/v1/guilds/:guildID/gift-channels. An optional
// memberIds query parameter (comma separated) restricts the scan to matches
// for those members; without it, every channel's evaluation is returned,
// including skip diagnostics.
func (h *GiftHandler) Audit(c echo.Context) error {
	guildID := c.Param("guildID")
	ownerID := auth.GetUserID(c)

	var memberIDs []string
	if raw := c.QueryParam("memberIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				memberIDs = append(memberIDs, id)
			}
		}
	}

	evals, err := h.gifts.Audit(c.Request().Context(), guildID, ownerID, memberIDs)
	if err != nil {
		return serviceErrorJSON(c, err)
	}
	if evals == nil {
		evals = []giftchannel.Evaluation{}
	}
	return successJSON(c, http.StatusOK, evals)
}

// History handles GET /api/v1/guilds/:guildID/gift-channels/history.
func (h *GiftHandler) History(c echo.Context) error {
	guildID := c.Param("guildID")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
		}
		limit = n
	}

	records, err := h.gifts.History(c.Request().Context(), guildID, limit)
	if err != nil {
		return serviceErrorJSON(c, err)
	}
	if records == nil {
		records = []models.GiftResolution{}
	}
	return successJSON(c, http.StatusOK, records)
}
