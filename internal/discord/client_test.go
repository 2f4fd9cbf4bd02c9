package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shimmy1219/gacha-web-sub003/internal/permissions"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var slept []time.Duration
	c := NewClient("test-token", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestCurrentUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "bot-1", "username": "giftbot", "bot": true})
	})

	u, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "bot-1" || !u.Bot {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestRateLimitRetriedWithHint(t *testing.T) {
	attempts := 0
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"retry_after": 0.5, "message": "You are being rate limited."}`))
			return
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.GuildChannels(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if len(*slept) != 1 || (*slept)[0] != 500*time.Millisecond {
		t.Errorf("expected one 500ms sleep, got %v", *slept)
	}
}

func TestRateLimitRetryCeiling(t *testing.T) {
	attempts := 0
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after": 0.01}`))
	})

	_, err := c.GuildChannels(context.Background(), "g1")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(*slept) != 3 {
		t.Errorf("expected a sleep per attempt, got %d", len(*slept))
	}
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != http.StatusTooManyRequests {
		t.Errorf("expected 429 APIError, got %v", err)
	}
}

func TestRetryAfterClamped(t *testing.T) {
	attempts := 0
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"retry_after": 3600}`))
			return
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.GuildChannels(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != maxRetryAfter {
		t.Errorf("expected wait clamped to %v, got %v", maxRetryAfter, *slept)
	}
}

func TestRetryAfterHeaderFallback(t *testing.T) {
	attempts := 0
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`rate limited`))
			return
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.GuildChannels(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Errorf("expected 2s from the header, got %v", *slept)
	}
}

func TestServerErrorRetried(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.GuildChannels(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected retry on 502, got %d attempts", attempts)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code": 50013, "message": "Missing Permissions"}`))
	})

	_, err := c.GuildChannels(context.Background(), "g1")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected no retry on 403, got %d attempts", attempts)
	}
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if ae.Status != http.StatusForbidden || ae.Code != 50013 || ae.Message != "Missing Permissions" {
		t.Errorf("unexpected APIError: %+v", ae)
	}
	if !IsMissingPermissions(err) {
		t.Error("expected IsMissingPermissions to match")
	}
}

func TestIsUnknownGuild(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": 10004, "message": "Unknown Guild"}`))
	})

	_, err := c.GuildChannels(context.Background(), "g1")
	if !IsUnknownGuild(err) {
		t.Errorf("expected IsUnknownGuild to match, got %v", err)
	}
	if IsMissingPermissions(err) || IsCategoryChannelLimit(err) {
		t.Error("expected other classifiers not to match")
	}
}

func TestIsUnknownGuildRequiresBothStatusAndCode(t *testing.T) {
	err := &APIError{Status: http.StatusNotFound, Code: 10003}
	if IsUnknownGuild(err) {
		t.Error("expected mismatching code not to classify as unknown guild")
	}
	err = &APIError{Status: http.StatusBadRequest, Code: 10004}
	if IsUnknownGuild(err) {
		t.Error("expected mismatching status not to classify as unknown guild")
	}
}

func TestIsCategoryChannelLimit(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 50035, "errors": {"parent_id": {"_errors": [{"message": "Maximum number of channels in category reached (50)"}]}}}`))
	})

	_, err := c.CreateGuildChannel(context.Background(), "g1", CreateChannelRequest{Name: "x"})
	if !IsCategoryChannelLimit(err) {
		t.Errorf("expected IsCategoryChannelLimit to match, got %v", err)
	}
}

func TestPutChannelPermissionRequest(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.PutChannelPermission(context.Background(), "chan-1", "user-1", OverwriteTypeMember, permissions.GiftChannelGrant, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/channels/chan-1/permissions/user-1" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotBody["type"] != float64(OverwriteTypeMember) {
		t.Errorf("unexpected type: %v", gotBody["type"])
	}
	if gotBody["allow"] != permissions.GiftChannelGrant.String() {
		t.Errorf("expected decimal-string allow, got %v", gotBody["allow"])
	}
	if gotBody["deny"] != "0" {
		t.Errorf("expected deny 0, got %v", gotBody["deny"])
	}
}

func TestCreateGuildChannelRequest(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"id": "new-1", "name": "rina-chan", "type": 0, "parent_id": "cat-1"})
	})

	ch, err := c.CreateGuildChannel(context.Background(), "g1", CreateChannelRequest{
		Name:     "rina-chan",
		ParentID: "cat-1",
		Overwrites: []CreateOverwrite{
			{ID: "g1", Type: OverwriteTypeRole, Deny: permissions.ViewChannel.String()},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != "new-1" || ch.Parent() != "cat-1" {
		t.Errorf("unexpected channel: %+v", ch)
	}
	if gotBody["parent_id"] != "cat-1" {
		t.Errorf("expected parent_id in body, got %v", gotBody["parent_id"])
	}
	if _, ok := gotBody["permission_overwrites"]; !ok {
		t.Error("expected permission_overwrites in body")
	}
}
