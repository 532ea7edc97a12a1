package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReplyPriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"output wins", `{"output":"a","response":"b"}`, "a"},
		{"bare string", `"direto"`, "direto"},
		{"response", `{"response":"r","text":"t"}`, "r"},
		{"text", `{"text":"t","message":"m"}`, "t"},
		{"message", `{"message":"m","answer":"a"}`, "m"},
		{"answer", `{"answer":"a","data":"d"}`, "a"},
		{"data", `{"data":"d"}`, "d"},
		{"empty output skipped", `{"output":"","text":"t"}`, "t"},
		{"number output", `{"output":42}`, "42"},
		{"first array element", `["um","dois"]`, "um"},
		{"array of objects", `[{"output":"dentro"}]`, "dentro"},
		{"raw json fallback", `{"foo":"bar"}`, `{"foo":"bar"}`},
		{"empty array", `[]`, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractReply([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractReply([]byte("<html>"))
	assert.Error(t, err)
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "linha 1\nlinha 2 \"citação\"", Unescape(`linha 1\nlinha 2 \"citação\"`))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"inline markup", "**Vênus** em *Touro* traz `paz`.", "Vênus em Touro traz paz."},
		{"heading and link", "## Título\n\n[Leia mais](https://biblioteca.test/x)", "Título\n\nLeia mais"},
		{"code block kept", "Veja:\n\n```\nmantra()\n```", "Veja:\n\nmantra()"},
		{"underscore emphasis", "_sutil_", "sutil"},
		{"plain", "Olá", "Olá"},
		{"escapes and entities", `2 \* 3 &amp; mais`, "2 * 3 & mais"},
		{"numeric reference", "&#35;lua &#x2728;", "#lua ✨"},
		{"code span keeps escapes", "use `a\\*b`", `use a\*b`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}

	list := PlainText("- um\n- dois")
	assert.Contains(t, list, "- um")
	assert.Contains(t, list, "- dois")
	assert.NotContains(t, PlainText("<b>x</b> y"), "<b>")
}

func TestClientSend(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"output":"**Olá**, amiga\\nSeja bem-vinda"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	reply, err := c.Send(context.Background(), "oi", "Sofia")
	require.NoError(t, err)
	assert.Equal(t, "Olá, amiga\nSeja bem-vinda", reply)
	assert.Equal(t, "oi", got.Message)
	assert.Equal(t, "Sofia", got.Username)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got.Timestamp)
}

func TestClientSendNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Send(context.Background(), "oi", "x")
	assert.ErrorContains(t, err, "502")

	_, err = NewClient("", time.Second).Send(context.Background(), "oi", "x")
	assert.Error(t, err)
}

func TestHistoryLoadFreshAndExpiry(t *testing.T) {
	ctx := context.Background()
	storage := session.NewFileStorage(t.TempDir())
	h := NewHistory(storage)
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	tr, err := h.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, Greeting, tr.Messages[0].Content)
	assert.Equal(t, RoleAssistant, tr.Messages[0].Role)

	tr.Messages = append(tr.Messages, Message{ID: "2", Role: RoleUser, Content: "oi", Timestamp: now})
	require.NoError(t, h.Save(ctx, tr))

	now = now.Add(47 * time.Hour)
	kept, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, kept.Messages, 2)

	now = now.Add(time.Hour)
	expired, err := h.Load(ctx)
	require.NoError(t, err)
	require.Len(t, expired.Messages, 1)
	assert.Equal(t, Greeting, expired.Messages[0].Content)
	_, err = storage.Get(ctx, HistoryKey)
	assert.ErrorIs(t, err, session.ErrNoValue)
}

func TestHistoryCorruptPayload(t *testing.T) {
	ctx := context.Background()
	storage := session.NewFileStorage(t.TempDir())
	require.NoError(t, storage.Set(ctx, HistoryKey, []byte("nope")))

	tr, err := NewHistory(storage).Load(ctx)
	require.NoError(t, err)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, Greeting, tr.Messages[0].Content)
}

type fakeSender struct {
	reply    string
	err      error
	username string
}

func (f *fakeSender) Send(_ context.Context, _ string, username string) (string, error) {
	f.username = username
	return f.reply, f.err
}

func TestConversationSend(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(session.NewFileStorage(t.TempDir()))
	sender := &fakeSender{reply: "As estrelas sorriem."}

	conv, err := NewConversation(ctx, sender, history)
	require.NoError(t, err)

	_, err = conv.Send(ctx, "   ", nil)
	assert.True(t, apperr.IsValidation(err))
	assert.Len(t, conv.Messages(), 1)

	name := "Sofia"
	reply, err := conv.Send(ctx, "Qual meu signo?", &models.User{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "As estrelas sorriem.", reply.Content)
	assert.Equal(t, "Sofia", sender.username)

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "Qual meu signo?", msgs[1].Content)

	reloaded, err := history.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded.Messages, 3)
}

func TestConversationSendFailureAppendsApology(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(session.NewFileStorage(t.TempDir()))
	conv, err := NewConversation(ctx, &fakeSender{err: errors.New("boom")}, history)
	require.NoError(t, err)

	reply, err := conv.Send(ctx, "oi", &models.User{Email: "a@b.test"})
	assert.Error(t, err)
	assert.Equal(t, Apology, reply.Content)
	assert.Len(t, conv.Messages(), 3)
}

func TestUsername(t *testing.T) {
	blank := "  "
	name := "Sofia"
	assert.Equal(t, "Usuário", Username(nil))
	assert.Equal(t, "Usuário", Username(&models.User{}))
	assert.Equal(t, "a@b.test", Username(&models.User{Email: "a@b.test", DisplayName: &blank}))
	assert.Equal(t, "Sofia", Username(&models.User{Email: "a@b.test", DisplayName: &name}))
}
