package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"biblioteca-mistica/internal/chat"

	"github.com/docopt/docopt-go"
)

func (c *cli) chat(ctx context.Context, opts docopt.Opts) error {
	if c.cfg.ChatWebhookURL == "" {
		return errors.New("CHAT_WEBHOOK_URL is not set")
	}
	history := chat.NewHistory(c.storage)
	if reset, _ := opts.Bool("--reset"); reset {
		if err := history.Reset(ctx); err != nil {
			return err
		}
	}
	conv, err := chat.NewConversation(ctx, chat.NewClient(c.cfg.ChatWebhookURL, c.cfg.RequestTimeout), history)
	if err != nil {
		return err
	}

	if msg, _ := opts.String("<message>"); msg != "" {
		return c.say(ctx, conv, msg)
	}

	for _, m := range conv.Messages() {
		printMessage(m)
	}
	for {
		line, err := c.readLine("> ")
		if errors.Is(err, io.EOF) || line == "/sair" {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := c.say(ctx, conv, line); err != nil {
			Err.Printf("⚠️ [CHAT] %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// say prints the reply, or the apology when the agent failed.
func (c *cli) say(ctx context.Context, conv *chat.Conversation, text string) error {
	reply, err := conv.Send(ctx, text, c.sessions.User())
	if reply.Content != "" {
		printMessage(reply)
	}
	return err
}

func printMessage(m chat.Message) {
	who := "🔮"
	if m.Role == chat.RoleUser {
		who = "🙋"
	}
	Out.Printf("%s %s", who, m.Content)
}
