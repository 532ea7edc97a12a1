package main

import (
	"bufio"
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/config"
	"biblioteca-mistica/internal/inbox"
	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/pkg/models"

	"github.com/docopt/docopt-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, argv ...string) docopt.Opts {
	t.Helper()
	p := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
	opts, err := p.ParseArgs(usage, argv, Version)
	require.NoError(t, err, "argv %v", argv)
	return opts
}

func TestUsageGrammar(t *testing.T) {
	opts := parse(t, "post", "feed", "Lua cheia hoje", "--title=Aviso", "--type=warning")
	assert.Equal(t, models.PostKindFeed, postKind(opts))
	body, _ := opts.String("<body>")
	assert.Equal(t, "Lua cheia hoje", body)
	title, _ := opts.String("--title")
	assert.Equal(t, "Aviso", title)

	opts = parse(t, "wall", "community", "--watch")
	assert.Equal(t, models.PostKindCommunity, postKind(opts))
	watch, _ := opts.Bool("--watch")
	assert.True(t, watch)

	opts = parse(t, "read", "--all")
	all, _ := opts.Bool("--all")
	assert.True(t, all)

	opts = parse(t, "prefs", "--feed=off")
	feed, _ := opts.String("--feed")
	assert.Equal(t, "off", feed)
	isCmd, _ := opts.Bool("feed")
	assert.False(t, isCmd)

	opts = parse(t, "chat")
	msg, _ := opts.String("<message>")
	assert.Empty(t, msg)

	for _, cmd := range commands {
		assert.Contains(t, usage, "biblioteca "+cmd.name, cmd.name)
	}
}

func TestParseID(t *testing.T) {
	opts := parse(t, "remove", "0190f2a0-0000-7000-8000-000000000001")
	id, err := parseID(opts, "<id>")
	require.NoError(t, err)
	assert.Equal(t, "0190f2a0-0000-7000-8000-000000000001", id.String())

	opts = parse(t, "remove", "nope")
	_, err = parseID(opts, "<id>")
	assert.True(t, apperr.IsValidation(err))
}

func TestParseSwitch(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "yes", "1"} {
		on, err := parseSwitch(s)
		require.NoError(t, err)
		assert.True(t, on, s)
	}
	for _, s := range []string{"off", "false", "no", "0"} {
		on, err := parseSwitch(s)
		require.NoError(t, err)
		assert.False(t, on, s)
	}
	_, err := parseSwitch("talvez")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "uma linha só", preview("uma\n  linha   só", 20))
	assert.Equal(t, "abcd…", preview("abcdefgh", 5))
	assert.Equal(t, "ação…", preview("açãoçãoção", 5))
}

func TestTerminalPrompter(t *testing.T) {
	cases := map[string]inbox.Permission{
		"s\n":   inbox.PermissionGranted,
		"yes\n": inbox.PermissionGranted,
		"n\n":   inbox.PermissionDenied,
		"\n":    inbox.PermissionDefault,
		"":      inbox.PermissionDefault,
	}
	for input, want := range cases {
		var out bytes.Buffer
		p := terminalPrompter{in: bufio.NewReader(strings.NewReader(input)), out: &out}
		got, err := p.Prompt(context.Background())
		require.NoError(t, err, "%q", input)
		assert.Equal(t, want, got, "%q", input)
		assert.Contains(t, out.String(), "[y/n]")
	}
}

func TestTerminalOutput(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	sink := terminalNotices(l)
	sink.Notice(notice.Notice{Title: "Erro ao curtir", Description: "tente de novo", Variant: notice.Destructive})
	sink.Notice(notice.Notice{Title: "Post criado!", Variant: notice.Success})
	assert.Equal(t, "❌ Erro ao curtir: tente de novo\n✅ Post criado!\n", buf.String())

	buf.Reset()
	terminalDesktop{out: l}.Show(inbox.Alert{Title: "Novo módulo", Body: "Tarot", Link: "/modulos/tarot"})
	assert.Equal(t, "🔔 Novo módulo\n   Tarot\n   🔗 /modulos/tarot\n", buf.String())
}

func TestCloseWithFileStorage(t *testing.T) {
	c, err := newCLI(context.Background(), &config.ClientConfig{
		APIURL:         "http://127.0.0.1:1",
		StateDir:       t.TempDir(),
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Nil(t, c.rdb)
	assert.NoError(t, c.Close())
}

func TestCloseReleasesRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	c, err := newCLI(context.Background(), &config.ClientConfig{
		APIURL:         "http://127.0.0.1:1",
		RedisURL:       url,
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, c.rdb)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.rdb.Ping(context.Background()).Err(), redis.ErrClosed)
}
