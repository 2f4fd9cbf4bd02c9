package api

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/Shimmy1219/gacha-web-sub003/internal/giftchannel"
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	"github.com/Shimmy1219/gacha-web-sub003/internal/service"
)

func TestResolve_Success(t *testing.T) {
	var gotReq service.ResolveRequest
	gifts := &mockGiftResolver{
		ResolveFn: func(_ context.Context, req service.ResolveRequest) (*giftchannel.Result, error) {
			gotReq = req
			return &giftchannel.Result{ChannelID: "chan-1", ChannelName: "rina-chan", Outcome: giftchannel.OutcomeExisting}, nil
		},
	}
	h := NewGiftHandler(gifts, "default-category")

	body := strings.NewReader(`{"memberId":"member-1","displayName":"Rina Chan"}`)
	c, rec := newTestContext(http.MethodPost, "/api/v1/guilds/guild-1/gift-channel", body)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Resolve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	want := service.ResolveRequest{
		GuildID:             "guild-1",
		OwnerID:             "owner-1",
		MemberID:            "member-1",
		CategoryID:          "default-category",
		ExpectedDisplayName: "Rina Chan",
		AllowCreate:         true,
	}
	if !reflect.DeepEqual(gotReq, want) {
		t.Errorf("unexpected request:\n got %+v\nwant %+v", gotReq, want)
	}

	var resp struct {
		Data resolveResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.ChannelID != "chan-1" || resp.Data.Outcome != "existing" {
		t.Errorf("unexpected body: %+v", resp.Data)
	}
}

func TestResolve_CreatedReturns201(t *testing.T) {
	gifts := &mockGiftResolver{
		ResolveFn: func(_ context.Context, _ service.ResolveRequest) (*giftchannel.Result, error) {
			return &giftchannel.Result{ChannelID: "new-1", Created: true, Outcome: giftchannel.OutcomeCreated}, nil
		},
	}
	h := NewGiftHandler(gifts, "")

	body := strings.NewReader(`{"memberId":"member-1"}`)
	c, rec := newTestContext(http.MethodPost, "/api/v1/guilds/guild-1/gift-channel", body)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Resolve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
}

func TestResolve_RequestOverridesDefaults(t *testing.T) {
	var gotReq service.ResolveRequest
	gifts := &mockGiftResolver{
		ResolveFn: func(_ context.Context, req service.ResolveRequest) (*giftchannel.Result, error) {
			gotReq = req
			return &giftchannel.Result{Outcome: giftchannel.OutcomeNotFound}, nil
		},
	}
	h := NewGiftHandler(gifts, "default-category")

	body := strings.NewReader(`{"memberId":"member-1","categoryId":"custom-cat","allowCreate":false}`)
	c, rec := newTestContext(http.MethodPost, "/api/v1/guilds/guild-1/gift-channel", body)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Resolve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotReq.CategoryID != "custom-cat" {
		t.Errorf("expected request category to win, got %q", gotReq.CategoryID)
	}
	if gotReq.AllowCreate {
		t.Error("expected allowCreate=false honored")
	}
}

func TestResolve_MissingMemberID(t *testing.T) {
	h := NewGiftHandler(&mockGiftResolver{}, "")

	body := strings.NewReader(`{"displayName":"Rina"}`)
	c, rec := newTestContext(http.MethodPost, "/api/v1/guilds/guild-1/gift-channel", body)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Resolve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestResolve_ServiceErrorMapped(t *testing.T) {
	cases := []struct {
		name   string
		err    *service.ServiceError
		status int
	}{
		{"unknown guild", service.NotFound("UNKNOWN_GUILD", "no such guild"), http.StatusNotFound},
		{"missing permissions", service.Forbidden("BOT_MISSING_PERMISSIONS", "no access"), http.StatusForbidden},
		{"category limit", service.Conflict("CATEGORY_CHANNEL_LIMIT", "category full"), http.StatusConflict},
		{"upstream", service.NewError(service.ErrUpstream, "DISCORD_API", "upstream failure"), http.StatusBadGateway},
		{"internal", service.Internal("INTERNAL", "internal server error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gifts := &mockGiftResolver{
				ResolveFn: func(_ context.Context, _ service.ResolveRequest) (*giftchannel.Result, error) {
					return nil, tc.err
				},
			}
			h := NewGiftHandler(gifts, "")

			body := strings.NewReader(`{"memberId":"member-1"}`)
			c, rec := newTestContext(http.MethodPost, "/api/v1/guilds/guild-1/gift-channel", body)
			c.SetParamNames("guildID")
			c.SetParamValues("guild-1")
			setAuthUser(c, "owner-1")

			if err := h.Resolve(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Code != tc.err.Code {
				t.Errorf("expected code %q, got %q", tc.err.Code, resp.Error.Code)
			}
		})
	}
}

func TestAudit_MemberFilterParsed(t *testing.T) {
	var gotMembers []string
	gifts := &mockGiftResolver{
		AuditFn: func(_ context.Context, guildID, ownerID string, memberIDs []string) ([]giftchannel.Evaluation, error) {
			gotMembers = memberIDs
			return []giftchannel.Evaluation{{ChannelID: "c1", Kind: giftchannel.StandardWithBot}}, nil
		},
	}
	h := NewGiftHandler(gifts, "")

	c, rec := newTestContext(http.MethodGet, "/api/v1/guilds/guild-1/gift-channels?memberIds=a,%20b,,c", nil)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Audit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !reflect.DeepEqual(gotMembers, []string{"a", "b", "c"}) {
		t.Errorf("expected trimmed member ids, got %v", gotMembers)
	}
}

func TestAudit_EmptyResultIsArray(t *testing.T) {
	h := NewGiftHandler(&mockGiftResolver{}, "")

	c, rec := newTestContext(http.MethodGet, "/api/v1/guilds/guild-1/gift-channels", nil)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.Audit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty JSON array, got %s", rec.Body.String())
	}
}

func TestHistory_Success(t *testing.T) {
	gifts := &mockGiftResolver{
		HistoryFn: func(_ context.Context, guildID string, limit int) ([]models.GiftResolution, error) {
			if guildID != "guild-1" || limit != 10 {
				t.Errorf("unexpected args: guild=%q limit=%d", guildID, limit)
			}
			return []models.GiftResolution{{ID: "r1", GuildID: guildID, Outcome: "created"}}, nil
		},
	}
	h := NewGiftHandler(gifts, "")

	c, rec := newTestContext(http.MethodGet, "/api/v1/guilds/guild-1/gift-channels/history?limit=10", nil)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	h := NewGiftHandler(&mockGiftResolver{}, "")

	c, rec := newTestContext(http.MethodGet, "/api/v1/guilds/guild-1/gift-channels/history?limit=abc", nil)
	c.SetParamNames("guildID")
	c.SetParamValues("guild-1")
	setAuthUser(c, "owner-1")

	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
