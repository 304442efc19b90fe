package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessageStatus(t *testing.T) {
	st, ok := ParseMessageStatus("delivered")
	require.True(t, ok)
	require.Equal(t, MessageStatusDelivered, st)

	_, ok = ParseMessageStatus("deleted")
	require.False(t, ok)
}

func TestParseInboundType(t *testing.T) {
	tests := []struct {
		in   string
		want MessageType
		ok   bool
	}{
		{"text", MessageTypeText, true},
		{"contacts", MessageTypeContact, true},
		{"button", MessageTypeInteractive, true},
		{"interactive", MessageTypeInteractive, true},
		{"sticker", MessageTypeImage, true},
		{"DOCUMENT", MessageTypeDocument, true},
		{"reaction", "", false},
		{"order", "", false},
		{"unsupported", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseInboundType(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestWebhookPayloadToleratesMalformedItems(t *testing.T) {
	raw := `{"entry":[{"changes":[{"value":{
	  "messages":[
	    {"from":"1","id":"wamid.ok","type":"location","location":{"latitude":1.5,"longitude":2},"context":{"from":"2","id":"wamid.prev"}},
	    {"from":1,"id":"wamid.bad"}
	  ],
	  "statuses":[{"id":"wamid.s","status":"read"},{"id":7}]
	}}]}]}`

	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	value := payload.Entry[0].Changes[0].Value

	require.NoError(t, value.Messages[0].DecodeErr())
	require.Error(t, value.Messages[1].DecodeErr())
	require.NoError(t, value.Statuses[0].DecodeErr())
	require.Error(t, value.Statuses[1].DecodeErr())

	content := value.Messages[0].Content()
	require.Equal(t, map[string]any{"latitude": 1.5, "longitude": float64(2)}, content["location"])
	require.Equal(t, map[string]any{"from": "2", "id": "wamid.prev"}, content["context"])
}

func TestInboundContentWithoutRaw(t *testing.T) {
	msg := InboundMessage{Type: "text", Text: &TextContent{Body: "hi"}}
	require.Equal(t, map[string]any{"text": map[string]any{"body": "hi"}}, msg.Content())
}

func TestTemplateFieldsMatches(t *testing.T) {
	tpl := &Template{Name: "a", Language: "en", Status: TemplateStatusApproved}
	fields := TemplateFields{Name: "a", Language: "en", Status: TemplateStatusApproved, Metadata: map[string]any{}}
	require.True(t, fields.Matches(tpl))

	fields.Metadata = map[string]any{"k": "v"}
	require.False(t, fields.Matches(tpl))
	require.False(t, fields.Matches(nil))
}

func TestWhatsAppConfigCredentials(t *testing.T) {
	var nilCfg *WhatsAppConfig
	require.Len(t, nilCfg.MissingCredentials(), 4)

	cfg := WhatsAppConfig{AccessToken: "EAAabcdefghij", AppID: "1", WabaID: "3", ClientSecret: "s"}
	require.Equal(t, []string{"phone_number_id"}, cfg.MissingCredentials())

	redacted := cfg.Redacted()
	require.Equal(t, "EAAa****ghij", redacted.AccessToken)
	require.Equal(t, "****", redacted.ClientSecret)
	require.Equal(t, "EAAabcdefghij", cfg.AccessToken)
}
