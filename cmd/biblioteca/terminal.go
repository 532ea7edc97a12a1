package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"biblioteca-mistica/internal/inbox"
	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/wall"
	"biblioteca-mistica/pkg/models"
)

// terminalDesktop prints alerts instead of showing a system notification.
type terminalDesktop struct {
	out *log.Logger
}

func (d terminalDesktop) Show(a inbox.Alert) {
	d.out.Printf("🔔 %s", a.Title)
	if a.Body != "" {
		d.out.Printf("   %s", a.Body)
	}
	if a.Link != "" {
		d.out.Printf("   🔗 %s", a.Link)
	}
}

type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// Prompt reads a yes or no. Anything else, including end of input, leaves
// the permission undecided.
func (p terminalPrompter) Prompt(context.Context) (inbox.Permission, error) {
	fmt.Fprint(p.out, "Allow desktop alerts for new notifications? [y/n] ")
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return inbox.PermissionDefault, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim":
		return inbox.PermissionGranted, nil
	case "n", "no", "nao", "não":
		return inbox.PermissionDenied, nil
	}
	return inbox.PermissionDefault, nil
}

func terminalNotices(l *log.Logger) notice.Sink {
	return notice.Func(func(n notice.Notice) {
		icon := "ℹ️"
		switch n.Variant {
		case notice.Destructive:
			icon = "❌"
		case notice.Success:
			icon = "✅"
		}
		if n.Description == "" {
			l.Printf("%s %s", icon, n.Title)
			return
		}
		l.Printf("%s %s: %s", icon, n.Title, n.Description)
	})
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// preview shortens s to max runes on a single line.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}

func printUser(u *models.User) {
	Out.Printf("👤 %s <%s>", u.Label(), u.Email)
	if u.IsAdmin() {
		Out.Println("   role: admin")
	} else if u.IsPublisher {
		Out.Println("   role: publisher")
	}
	if u.Bio != nil && *u.Bio != "" {
		Out.Printf("   %s", *u.Bio)
	}
	Out.Printf("   member since %s", u.PurchaseDate.Format("02/01/2006"))
}

func printWall(v *wall.View, me *models.User) {
	posts := v.Posts()
	if len(posts) == 0 {
		Out.Println("(no posts yet)")
		return
	}
	for _, p := range posts {
		heart := "🤍"
		if me != nil && p.LikedByUser(me.ID) {
			heart = "❤️"
		}
		Out.Printf("[%s] %s · %s", p.ID, p.Author.Label(), p.CreatedAt.Format("02/01/2006 15:04"))
		if p.Title != nil {
			tag := ""
			if p.Type != nil {
				tag = fmt.Sprintf(" (%s)", *p.Type)
			}
			Out.Printf("  %s%s", *p.Title, tag)
		}
		Out.Printf("  %s", p.Body)
		if p.ImageURL != nil {
			Out.Printf("  🖼️  %s", *p.ImageURL)
		}
		Out.Printf("  %s %d  💬 %d", heart, len(p.LikedBy), v.CommentCount(p.ID))
	}
}

func printInbox(in *inbox.Inbox) {
	items := in.Items()
	Out.Printf("📬 %d notification(s), %d unread", len(items), in.Unread())
	for _, n := range items {
		mark := " "
		if !n.Read {
			mark = "•"
		}
		Out.Printf("%s [%s] %s: %s", mark, n.ID, n.Title, preview(n.Message, 80))
	}
}
