package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/gateway"
	apphttp "git.solsynth.dev/hypernet/converse/pkg/internal/http"
	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store/storetest"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUploader struct{}

func (memoryUploader) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	return "https://files.example.com/" + key, nil
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
	key   string
}

func (c client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if len(c.token) > 0 {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if len(c.key) > 0 {
		req.Header.Set(exts.IdempotencyKeyHeader, c.key)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	var out map[string]any
	_ = jsoniter.Unmarshal(raw, &out)
	if out == nil {
		out = map[string]any{"raw": string(raw)}
	}
	return resp.StatusCode, out
}

func setup(t *testing.T) (*fiber.App, func(userId uint) client) {
	viper.Set("security.reply_token_secret", "http-reply-secret")

	identity := services.NewJWTIdentity("http-secret")
	gw := gateway.New(identity, gateway.NewLocalFanout(), gateway.Config{})
	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() { _ = gw.Stop() })

	svc := services.NewService(store.New(storetest.Open(t)), gw).UseUploader(memoryUploader{})
	app := apphttp.NewServer(svc, gw, identity).Fiber()

	return app, func(userId uint) client {
		token, err := identity.Issue(userId, time.Minute)
		require.NoError(t, err)
		return client{t: t, app: app, token: token}
	}
}

func TestRequiresAuthentication(t *testing.T) {
	app, _ := setup(t)
	anonymous := client{t: t, app: app}

	status, _ := anonymous.do(fiber.MethodGet, "/api/conversations", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	broken := client{t: t, app: app, token: "nope"}
	status, _ = broken.do(fiber.MethodGet, "/api/whats-new", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestConversationFlow(t *testing.T) {
	_, as := setup(t)
	alice, bob, eve := as(1), as(2), as(3)

	status, created := alice.do(fiber.MethodPost, "/api/conversations", map[string]any{
		"kind":            "group",
		"name":            "Chemistry",
		"participant_ids": []uint{2},
	})
	require.Equal(t, fiber.StatusOK, status, created)
	id := uint(created["id"].(float64))

	status, _ = alice.do(fiber.MethodPost, "/api/conversations", map[string]any{
		"kind":            "group",
		"participant_ids": []uint{2},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = eve.do(fiber.MethodGet, fmt.Sprintf("/api/conversations/%d", id), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = alice.do(fiber.MethodGet, "/api/conversations/9999", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, sent := bob.do(fiber.MethodPost, "/api/messages", map[string]any{
		"conversation_id": id,
		"content":         "hello class",
	})
	require.Equal(t, fiber.StatusOK, status, sent)
	messageId := uint(sent["id"].(float64))

	status, _ = eve.do(fiber.MethodPost, "/api/messages", map[string]any{
		"conversation_id": id,
		"content":         "intruder",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, list := alice.do(fiber.MethodGet, fmt.Sprintf("/api/conversations/%d/messages?take=10", id), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, list["count"])

	status, _ = alice.do(fiber.MethodGet, fmt.Sprintf("/api/conversations/%d/messages?before=yesterday", id), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = alice.do(fiber.MethodPut, fmt.Sprintf("/api/messages/%d", messageId), map[string]any{"content": "edited"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, reacted := alice.do(fiber.MethodPost, fmt.Sprintf("/api/messages/%d/reactions", messageId), map[string]any{"emoji": "🧪"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, reacted["reactions"], 1)

	status, unread := alice.do(fiber.MethodGet, "/api/whats-new", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, unread["count"])

	status, _ = alice.do(fiber.MethodPost, fmt.Sprintf("/api/conversations/%d/read", id), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, found := alice.do(fiber.MethodGet, "/api/messages/search?q=CLASS", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, found["count"])

	status, deleted := bob.do(fiber.MethodDelete, fmt.Sprintf("/api/messages/%d", messageId), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, deleted["is_deleted"])
	assert.Equal(t, "[deleted]", deleted["content"])

	status, _ = bob.do(fiber.MethodDelete, fmt.Sprintf("/api/conversations/%d/members/me", id), nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = bob.do(fiber.MethodGet, fmt.Sprintf("/api/conversations/%d", id), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestDirectSendByReceiver(t *testing.T) {
	_, as := setup(t)
	alice, bob := as(1), as(2)

	status, sent := alice.do(fiber.MethodPost, "/api/messages", map[string]any{
		"receiver_id": 2,
		"content":     "psst",
	})
	require.Equal(t, fiber.StatusOK, status, sent)

	status, list := bob.do(fiber.MethodGet, "/api/conversations", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, list["count"])
}

func TestQuickReplyEndpoint(t *testing.T) {
	_, as := setup(t)
	alice := as(1)

	status, created := alice.do(fiber.MethodPost, "/api/conversations", map[string]any{
		"kind":            "group",
		"name":            "Biology",
		"participant_ids": []uint{2},
	})
	require.Equal(t, fiber.StatusOK, status)
	id := uint(created["id"].(float64))

	_, sent := alice.do(fiber.MethodPost, "/api/messages", map[string]any{"conversation_id": id, "content": "lab at 3?"})
	messageId := uint(sent["id"].(float64))

	token, err := services.CreateReplyToken(id, messageId, 2)
	require.NoError(t, err)

	anonymous := client{t: t, app: alice.app}
	status, reply := anonymous.do(fiber.MethodPost, fmt.Sprintf("/api/quick/%d/reply/%d?replyToken=%s", id, messageId, token), map[string]any{"content": "sure"})
	require.Equal(t, fiber.StatusOK, status, reply)
	assert.EqualValues(t, 2, reply["sender_id"])

	status, _ = anonymous.do(fiber.MethodPost, fmt.Sprintf("/api/quick/%d/reply/%d", id, messageId), map[string]any{"content": "sure"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUploadBase64(t *testing.T) {
	_, as := setup(t)
	alice := as(1)

	status, result := alice.do(fiber.MethodPost, "/api/uploads", map[string]any{
		"filename":     "essay.txt",
		"content_type": "text/plain",
		"data":         base64.StdEncoding.EncodeToString([]byte("my essay")),
	})
	require.Equal(t, fiber.StatusOK, status, result)
	assert.Equal(t, "essay.txt", result["filename"])
	assert.EqualValues(t, 8, result["size"])
	assert.Contains(t, result["url"], "https://files.example.com/")
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	_, as := setup(t)
	alice := as(1)

	status, _ := alice.do(fiber.MethodGet, "/api/ws", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestIdempotencyKeyIsScopedToUser(t *testing.T) {
	_, as := setup(t)
	key := uuid.NewString()
	alice, bob := as(1), as(2)
	alice.key, bob.key = key, key

	body := map[string]any{
		"kind":            "group",
		"name":            "Biology",
		"participant_ids": []uint{3},
	}
	status, first := alice.do(fiber.MethodPost, "/api/conversations", body)
	require.Equal(t, fiber.StatusOK, status, first)

	status, replayed := alice.do(fiber.MethodPost, "/api/conversations", body)
	require.Equal(t, fiber.StatusOK, status, replayed)
	assert.Equal(t, first["id"], replayed["id"])

	status, other := bob.do(fiber.MethodPost, "/api/conversations", body)
	require.Equal(t, fiber.StatusOK, status, other)
	assert.NotEqual(t, first["id"], other["id"])
	assert.EqualValues(t, 2, other["creator_id"])

	alice.key = "not-a-uuid"
	status, _ = alice.do(fiber.MethodPost, "/api/conversations", body)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
