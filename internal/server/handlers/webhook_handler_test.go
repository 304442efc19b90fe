package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository/memory"
	"github.com/mamadbah2/wabahub/internal/service/webhook"
)

func newWebhookEngine(t *testing.T, appSecret string) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.AddOrganization(models.Organization{ID: "org-1", Slug: "acme", IsActive: true})
	h := NewWebhookHandler(webhook.New(store, store, "global-secret", appSecret, nil), nil)

	r := gin.New()
	r.GET("/webhook/whatsapp", h.Verify)
	r.GET("/webhook/whatsapp/:slug", h.VerifyTenant)
	r.POST("/webhook/whatsapp/:slug", h.Receive)
	return r, store
}

func TestWebhookVerification(t *testing.T) {
	r, _ := newWebhookEngine(t, "")

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"tenant", "/webhook/whatsapp/acme?hub.mode=subscribe&hub.verify_token=acme&hub.challenge=123", http.StatusOK, "123"},
		{"tenant bare params", "/webhook/whatsapp/acme?mode=subscribe&verify_token=acme&challenge=9", http.StatusOK, "9"},
		{"tenant wrong token", "/webhook/whatsapp/acme?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=123", http.StatusForbidden, "verification failed"},
		{"unknown tenant wrong token", "/webhook/whatsapp/ghost?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=123", http.StatusForbidden, "verification failed"},
		{"global", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=global-secret&hub.challenge=abc", http.StatusOK, "abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.body, w.Body.String())
		})
	}
}

const deliveryBody = `{"object":"whatsapp_business_account","entry":[{"id":"3000","changes":[{"field":"messages","value":{
  "contacts":[{"profile":{"name":"Ada"},"wa_id":"15550001"}],
  "messages":[{"from":"15550001","id":"wamid.1","timestamp":"1714564800","type":"text","text":{"body":"hi"}}]}}]}]}`

func TestWebhookReceive(t *testing.T) {
	r, store := newWebhookEngine(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/whatsapp/acme", strings.NewReader(deliveryBody)))
	require.Equal(t, http.StatusOK, w.Code)

	contact, err := store.FindOrCreateContact(context.Background(), "org-1", "15550001", nil)
	require.NoError(t, err)
	msgs, err := store.ListMessages(context.Background(), "org-1", contact.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestWebhookReceiveAlwaysAcknowledges(t *testing.T) {
	r, _ := newWebhookEngine(t, "")

	for _, body := range []string{"not json", deliveryBody} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/whatsapp/ghost", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestWebhookReceiveChecksSignature(t *testing.T) {
	r, _ := newWebhookEngine(t, "app-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp/acme", strings.NewReader(deliveryBody))
	req.Header.Set(webhook.SignatureHeader, "sha256=00")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(deliveryBody))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp/acme", strings.NewReader(deliveryBody))
	req.Header.Set(webhook.SignatureHeader, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
