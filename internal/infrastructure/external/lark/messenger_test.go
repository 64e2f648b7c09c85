package lark

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedMessage struct {
	ReceiveIDType string
	ReceiveID     string `json:"receive_id"`
	MsgType       string `json:"msg_type"`
	Content       string `json:"content"`
}

func larkServer(t *testing.T, code int) (*httptest.Server, func() []capturedMessage) {
	t.Helper()
	var mu sync.Mutex
	var messages []capturedMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/tenant_access_token/internal"):
			_, _ = w.Write([]byte(`{"code":0,"msg":"ok","tenant_access_token":"t-test","expire":7200}`))
		case strings.HasSuffix(r.URL.Path, "/im/v1/messages"):
			body, _ := io.ReadAll(r.Body)
			var msg capturedMessage
			_ = json.Unmarshal(body, &msg)
			msg.ReceiveIDType = r.URL.Query().Get("receive_id_type")
			mu.Lock()
			messages = append(messages, msg)
			mu.Unlock()
			if code != 0 {
				_, _ = w.Write([]byte(`{"code":230001,"msg":"invalid receive_id"}`))
				return
			}
			_, _ = w.Write([]byte(`{"code":0,"msg":"success","data":{"message_id":"om_1"}}`))
		default:
			http.NotFound(w, r)
		}
	}))

	return srv, func() []capturedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedMessage(nil), messages...)
	}
}

func TestMessenger_SendMessage(t *testing.T) {
	srv, messages := larkServer(t, 0)
	defer srv.Close()

	m := NewMessenger(NewClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, zap.NewNop()), zap.NewNop())

	err := m.SendMessage(t.Context(), "ou-1", `Task "OO/2026/1"`+"\nawaits you")
	require.NoError(t, err)

	got := messages()
	require.Len(t, got, 1)
	assert.Equal(t, "open_id", got[0].ReceiveIDType)
	assert.Equal(t, "ou-1", got[0].ReceiveID)
	assert.Equal(t, "text", got[0].MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(got[0].Content), &content))
	assert.Equal(t, "Task \"OO/2026/1\"\nawaits you", content["text"])
}

func TestMessenger_SendCardMessage(t *testing.T) {
	srv, messages := larkServer(t, 0)
	defer srv.Close()

	m := NewMessenger(NewClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, zap.NewNop()), zap.NewNop())

	card := map[string]interface{}{"header": map[string]interface{}{"template": "blue"}}
	require.NoError(t, m.SendCardMessage(t.Context(), "ou-2", card))

	got := messages()
	require.Len(t, got, 1)
	assert.Equal(t, "interactive", got[0].MsgType)
	assert.JSONEq(t, `{"header":{"template":"blue"}}`, got[0].Content)
}

func TestMessenger_Errors(t *testing.T) {
	srv, _ := larkServer(t, 230001)
	defer srv.Close()

	m := NewMessenger(NewClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, zap.NewNop()), zap.NewNop())

	assert.Error(t, m.SendMessage(t.Context(), "", "hi"))
	assert.Error(t, m.SendMessage(t.Context(), "ou-1", ""))
	assert.Error(t, m.SendCardMessage(t.Context(), "ou-1", nil))
	assert.ErrorContains(t, m.SendMessage(t.Context(), "ou-1", "hi"), "230001")
}
