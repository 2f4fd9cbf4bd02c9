package api

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"

	"github.com/Shimmy1219/gacha-web-sub003/internal/giftchannel"
	"github.com/Shimmy1219/gacha-web-sub003/internal/models"
	redisclient "github.com/Shimmy1219/gacha-web-sub003/internal/redis"
	"github.com/Shimmy1219/gacha-web-sub003/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID string) {
	c.Set("user_id", userID)
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisclient.NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("creating test redis client: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

// ---------------------------------------------------------------------------
// Mock gift resolver
// ---------------------------------------------------------------------------

type mockGiftResolver struct {
	ResolveFn func(ctx context.Context, req service.ResolveRequest) (*giftchannel.Result, error)
	AuditFn   func(ctx context.Context, guildID, ownerID string, memberIDs []string) ([]giftchannel.Evaluation, error)
	HistoryFn func(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error)
}

func (m *mockGiftResolver) Resolve(ctx context.Context, req service.ResolveRequest) (*giftchannel.Result, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, req)
	}
	return &giftchannel.Result{ChannelID: "chan-1", Outcome: giftchannel.OutcomeExisting}, nil
}

func (m *mockGiftResolver) Audit(ctx context.Context, guildID, ownerID string, memberIDs []string) ([]giftchannel.Evaluation, error) {
	if m.AuditFn != nil {
		return m.AuditFn(ctx, guildID, ownerID, memberIDs)
	}
	return nil, nil
}

func (m *mockGiftResolver) History(ctx context.Context, guildID string, limit int) ([]models.GiftResolution, error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, guildID, limit)
	}
	return nil, nil
}
