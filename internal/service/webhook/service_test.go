package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository/memory"
)

func newTestService(t *testing.T, appSecret string) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddOrganization(models.Organization{ID: "org-1", Slug: "acme", IsActive: true})
	return New(store, store, "global-secret", appSecret, nil), store
}

func decodePayload(t *testing.T, raw string) models.WebhookPayload {
	t.Helper()
	var payload models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestVerify(t *testing.T) {
	svc, _ := newTestService(t, "")

	tests := []struct {
		name    string
		verify  func() (string, error)
		wantErr bool
	}{
		{"tenant match", func() (string, error) { return svc.VerifyTenant("acme", "subscribe", "acme", "42") }, false},
		{"unknown tenant still answers by token", func() (string, error) { return svc.VerifyTenant("ghost", "subscribe", "ghost", "42") }, false},
		{"tenant wrong token", func() (string, error) { return svc.VerifyTenant("acme", "subscribe", "acm", "42") }, true},
		{"wrong mode", func() (string, error) { return svc.VerifyTenant("acme", "unsubscribe", "acme", "42") }, true},
		{"global match", func() (string, error) { return svc.VerifyGlobal("subscribe", "global-secret", "42") }, false},
		{"global wrong token", func() (string, error) { return svc.VerifyGlobal("subscribe", "acme", "42") }, true},
		{"empty expected token", func() (string, error) { return svc.VerifyTenant("", "subscribe", "", "42") }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.verify()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrVerificationFailed)
				require.Empty(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "42", got)
		})
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	svc, _ := newTestService(t, "app-secret")
	require.NoError(t, svc.VerifySignature(body, valid))
	require.ErrorIs(t, svc.VerifySignature(body, ""), ErrInvalidSignature)
	require.ErrorIs(t, svc.VerifySignature(body, "sha256=zz"), ErrInvalidSignature)
	require.ErrorIs(t, svc.VerifySignature([]byte("{}"), valid), ErrInvalidSignature)

	open, _ := newTestService(t, "")
	require.NoError(t, open.VerifySignature(body, ""))
}

const inboundPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "3000",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550100", "phone_number_id": "2000"},
        "contacts": [{"profile": {"name": "Ada"}, "wa_id": "15550001"}],
        "messages": [{
          "from": "15550001",
          "id": "wamid.in.1",
          "timestamp": "1714564800",
          "type": "text",
          "text": {"body": "hello"}
        }]
      }
    }]
  }]
}`

func TestReconcileInboundMessage(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "")

	res := svc.HandleDelivery(ctx, "acme", decodePayload(t, inboundPayload))
	require.Equal(t, Result{Messages: 1}, res)

	contact, err := store.FindOrCreateContact(ctx, "org-1", "15550001", nil)
	require.NoError(t, err)
	require.Equal(t, "Ada", contact.Name)

	msgs, err := store.ListMessages(ctx, "org-1", contact.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	msg := msgs[0]
	require.Equal(t, models.DirectionInbound, msg.Direction)
	require.Equal(t, models.MessageStatusDelivered, msg.Status)
	require.Equal(t, models.MessageTypeText, msg.Type)
	require.Equal(t, "wamid.in.1", *msg.ExternalMessageID)
	require.Equal(t, time.Unix(1714564800, 0).UTC(), msg.Timestamp)
	require.Equal(t, map[string]any{"text": map[string]any{"body": "hello"}}, msg.Content)
}

func TestReconcileNormalizesInboundTypes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "")

	payload := decodePayload(t, `{"entry": [{"changes": [{"value": {"messages": [
	  {"from": "15550001", "id": "wamid.c", "timestamp": "1714564801", "type": "contacts",
	   "contacts": [{"name": {"formatted_name": "Grace"}, "phones": [{"phone": "15550002"}]}]},
	  {"from": "15550001", "id": "wamid.b", "timestamp": "1714564802", "type": "button",
	   "button": {"payload": "yes", "text": "Yes"}},
	  {"from": "15550001", "id": "wamid.s", "timestamp": "1714564803", "type": "sticker",
	   "sticker": {"id": "media-1", "mime_type": "image/webp"}},
	  {"from": "15550001", "id": "wamid.r", "timestamp": "1714564804", "type": "reaction",
	   "reaction": {"message_id": "wamid.c", "emoji": "+1"}},
	  {"from": "15550001", "id": "wamid.u", "timestamp": "1714564805", "type": "unsupported"}
	]}}]}]}`)

	res := svc.Reconcile(ctx, "org-1", payload)
	require.Equal(t, Result{Messages: 3, Dropped: 2}, res)

	contact, err := store.FindOrCreateContact(ctx, "org-1", "15550001", nil)
	require.NoError(t, err)
	msgs, err := store.ListMessages(ctx, "org-1", contact.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	types := map[string]models.MessageType{}
	for _, m := range msgs {
		types[*m.ExternalMessageID] = m.Type
	}
	require.Equal(t, map[string]models.MessageType{
		"wamid.c": models.MessageTypeContact,
		"wamid.b": models.MessageTypeInteractive,
		"wamid.s": models.MessageTypeImage,
	}, types)
}

func TestReconcileStatusForInboundMessageIsDropped(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "")

	require.Equal(t, Result{Messages: 1}, svc.HandleDelivery(ctx, "acme", decodePayload(t, inboundPayload)))

	res := svc.Reconcile(ctx, "org-1", decodePayload(t, `{"entry": [{"changes": [{"value": {"statuses": [
	  {"id": "wamid.in.1", "status": "read", "recipient_id": "15550001"}
	]}}]}]}`))
	require.Equal(t, Result{Dropped: 1}, res)

	contact, err := store.FindOrCreateContact(ctx, "org-1", "15550001", nil)
	require.NoError(t, err)
	msgs, err := store.ListMessages(ctx, "org-1", contact.ID, 0)
	require.NoError(t, err)
	require.Equal(t, models.MessageStatusDelivered, msgs[0].Status)
}

func TestReconcileMalformedItemDoesNotStopSiblings(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "")

	ext := "wamid.out.1"
	require.NoError(t, store.CreateMessage(ctx, &models.Message{
		OrganizationID:    "org-1",
		ConversationID:    "conv",
		ExternalMessageID: &ext,
		Direction:         models.DirectionOutbound,
		Status:            models.MessageStatusSent,
	}))

	payload := decodePayload(t, `{
	  "entry": [{"changes": [{"value": {
	    "messages": [{"from": 15550001, "id": ["broken"]}],
	    "statuses": [{"id": "wamid.out.1", "status": "read", "timestamp": "1714564900", "recipient_id": "15550001"}]
	  }}]}]
	}`)

	res := svc.Reconcile(ctx, "org-1", payload)
	require.Equal(t, Result{Statuses: 1, Dropped: 1}, res)

	msgs, err := store.ListMessages(ctx, "org-1", "conv", 0)
	require.NoError(t, err)
	require.Equal(t, models.MessageStatusRead, msgs[0].Status)
}

func TestReconcileDropsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t, "")
	payload := decodePayload(t, `{"entry": [{"changes": [{"value": {"statuses": [
	  {"id": "wamid.nope", "status": "delivered"},
	  {"id": "wamid.nope", "status": "teleported"},
	  {"status": "sent"}
	]}}]}]}`)

	res := svc.Reconcile(context.Background(), "org-1", payload)
	require.Equal(t, Result{Dropped: 3}, res)
}

type failingStore struct {
	*memory.Store
	panicOn string
}

func (s *failingStore) FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error) {
	if phone == s.panicOn {
		panic("boom")
	}
	if phone == "fail" {
		return nil, errors.New("store down")
	}
	return s.Store.FindOrCreateContact(ctx, orgID, phone, profile)
}

func TestReconcileRecoversFromPanics(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), panicOn: "15550009"}
	svc := New(store.Store, store, "", "", nil)

	payload := decodePayload(t, `{"entry": [{"changes": [{"value": {"messages": [
	  {"from": "15550009", "id": "wamid.a", "type": "text", "text": {"body": "x"}},
	  {"from": "fail", "id": "wamid.b", "type": "text", "text": {"body": "y"}},
	  {"from": "15550001", "id": "wamid.c", "type": "text", "text": {"body": "z"}}
	]}}]}]}`)

	res := svc.Reconcile(context.Background(), "org-1", payload)
	require.Equal(t, Result{Messages: 1, Dropped: 2}, res)
}

func TestHandleDeliveryUnknownTenant(t *testing.T) {
	svc, _ := newTestService(t, "")

	res := svc.HandleDelivery(context.Background(), "ghost", decodePayload(t, inboundPayload))
	require.Equal(t, Result{Dropped: 1}, res)
}
