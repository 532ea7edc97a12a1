package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/config"
	"biblioteca-mistica/internal/inbox"
	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/remote"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/internal/wall"
	"biblioteca-mistica/pkg/models"

	"github.com/docopt/docopt-go"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"
)

var errNotLoggedIn = errors.New("not logged in, run 'biblioteca login'")

type cli struct {
	cfg      *config.ClientConfig
	storage  session.Storage
	sessions *session.Store
	api      *remote.Client
	notices  notice.Sink
	in       *bufio.Reader
	rdb      *redis.Client
}

// newCLI restores the saved session. State lives in Redis when
// BIBLIOTECA_REDIS_URL is set, otherwise in files under the state dir.
func newCLI(ctx context.Context, cfg *config.ClientConfig) (*cli, error) {
	var storage session.Storage
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BIBLIOTECA_REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		storage = session.NewRedisStorage(rdb, "biblioteca:")
	} else {
		storage = session.NewFileStorage(cfg.StateDir)
	}

	sessions := session.NewStore(storage)
	if _, err := sessions.Hydrate(ctx); err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &cli{
		cfg:      cfg,
		storage:  storage,
		sessions: sessions,
		api:      remote.New(cfg.APIURL, cfg.RequestTimeout, remote.SessionToken(sessions)),
		notices:  terminalNotices(Err),
		in:       bufio.NewReader(os.Stdin),
		rdb:      rdb,
	}, nil
}

// Close releases the Redis connection pool when one was opened.
func (c *cli) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *cli) user() (*models.User, error) {
	u := c.sessions.User()
	if u == nil {
		return nil, errNotLoggedIn
	}
	return u, nil
}

func (c *cli) readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return c.readLine(prompt)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cli) login(ctx context.Context, opts docopt.Opts) error {
	email, _ := opts.String("--email")
	if email == "" {
		var err error
		if email, err = c.readLine("Email: "); err != nil {
			return err
		}
	}
	password, err := c.readPassword("Senha: ")
	if err != nil {
		return err
	}

	sess, err := c.api.Login(ctx, email, password)
	if errors.Is(err, apperr.ErrUnauthorized) {
		return errors.New("invalid email or password")
	}
	if err != nil {
		return err
	}
	if err := c.sessions.Set(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	Out.Printf("✅ Signed in as %s", sess.User.Label())
	return nil
}

func (c *cli) logout(ctx context.Context, _ docopt.Opts) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return err
	}
	Out.Println("👋 Signed out")
	return nil
}

func (c *cli) whoami(ctx context.Context, _ docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	u, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	if err := c.sessions.UpdateUser(ctx, *u); err != nil {
		return err
	}
	printUser(u)
	return nil
}

func (c *cli) modules(ctx context.Context, _ docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	banners, err := c.api.Banners(ctx)
	if err != nil {
		return err
	}
	for _, b := range banners {
		Out.Printf("✨ %s", b.Title)
		if b.Subtitle != nil {
			Out.Printf("   %s", *b.Subtitle)
		}
	}
	list, err := c.api.Modules(ctx)
	if err != nil {
		return err
	}
	for _, m := range list {
		if m.Locked {
			Out.Printf("🔒 %2d. %s (unlocks in %d day(s))", m.Sequence, m.Title, m.DaysRemaining)
			continue
		}
		Out.Printf("📖 %2d. %s [%s]", m.Sequence, m.Title, m.Slug)
	}
	return nil
}

func (c *cli) module(ctx context.Context, opts docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	slug, _ := opts.String("<slug>")
	m, err := c.api.Module(ctx, slug)
	var locked *apperr.LockedError
	if errors.As(err, &locked) {
		Out.Printf("🔒 This module unlocks in %d day(s)", locked.DaysRemaining)
		return nil
	}
	if err != nil {
		return err
	}
	Out.Printf("📖 %s", m.Title)
	if m.Description != nil {
		Out.Println(*m.Description)
	}
	for _, pdf := range m.PDFs {
		Out.Printf("   📄 %s  %s", pdf.Title, pdf.FileURL)
	}
	return nil
}

func postKind(opts docopt.Opts) models.PostKind {
	if feed, _ := opts.Bool("feed"); feed {
		return models.PostKindFeed
	}
	return models.PostKindCommunity
}

func parseID(opts docopt.Opts, key string) (uuid.UUID, error) {
	s, _ := opts.String(key)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperr.Invalid(strings.Trim(key, "<>"), "invalid id %q", s)
	}
	return id, nil
}

// loadWall returns a view of the wall named in opts, already loaded.
func (c *cli) loadWall(ctx context.Context, opts docopt.Opts) (*wall.View, error) {
	if _, err := c.user(); err != nil {
		return nil, err
	}
	view := wall.NewView(postKind(opts), c.api, c.sessions, c.notices)
	if err := view.Reload(ctx); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *cli) wall(ctx context.Context, opts docopt.Opts) error {
	view, err := c.loadWall(ctx, opts)
	if err != nil {
		return err
	}
	printWall(view, c.sessions.User())
	if watch, _ := opts.Bool("--watch"); !watch {
		return nil
	}

	view.OnChange(func() {
		Out.Println("🔄 ----")
		printWall(view, c.sessions.User())
	})
	if err := view.Watch(ctx, c.api); err != nil {
		return err
	}
	defer view.Close()
	Out.Printf("👀 Watching %s, Ctrl-C to stop", view.Kind())
	<-ctx.Done()
	return nil
}

func (c *cli) post(ctx context.Context, opts docopt.Opts) error {
	view, err := c.loadWall(ctx, opts)
	if err != nil {
		return err
	}
	body, _ := opts.String("<body>")
	req := &models.PostRequest{Body: body}
	if title, _ := opts.String("--title"); title != "" {
		req.Title = &title
	}
	if view.Kind() == models.PostKindFeed {
		typ := models.FeedPostInfo
		if s, _ := opts.String("--type"); s != "" {
			typ = models.FeedPostType(s)
		}
		req.Type = &typ
	}
	if path, _ := opts.String("--image"); path != "" {
		name, contentType, data, err := readImageFile(path)
		if err != nil {
			return err
		}
		url, err := c.api.UploadImage(ctx, name, contentType, data)
		if err != nil {
			return err
		}
		req.ImageURL = &url
	}

	p, err := view.CreatePost(ctx, req)
	if err != nil {
		return err
	}
	Out.Printf("📝 %s", p.ID)
	return nil
}

func (c *cli) like(ctx context.Context, opts docopt.Opts) error {
	id, err := parseID(opts, "<post_id>")
	if err != nil {
		return err
	}
	view, err := c.loadWall(ctx, opts)
	if err != nil {
		return err
	}
	if err := view.ToggleLike(ctx, id); err != nil {
		return err
	}
	if p, ok := view.Post(id); ok {
		if p.LikedByUser(c.sessions.User().ID) {
			Out.Printf("❤️ Liked (%d)", len(p.LikedBy))
		} else {
			Out.Printf("🤍 Unliked (%d)", len(p.LikedBy))
		}
	}
	return nil
}

func (c *cli) comment(ctx context.Context, opts docopt.Opts) error {
	id, err := parseID(opts, "<post_id>")
	if err != nil {
		return err
	}
	view, err := c.loadWall(ctx, opts)
	if err != nil {
		return err
	}
	text, _ := opts.String("<text>")
	if err := view.AddComment(ctx, id, text); err != nil {
		return err
	}
	Out.Printf("💬 %d comment(s)", view.CommentCount(id))
	return nil
}

func (c *cli) deletePost(ctx context.Context, opts docopt.Opts) error {
	id, err := parseID(opts, "<post_id>")
	if err != nil {
		return err
	}
	view, err := c.loadWall(ctx, opts)
	if err != nil {
		return err
	}
	return view.DeletePost(ctx, id)
}

// newInbox wires desktop alerts to the terminal. The alert permission is
// asked once and kept in session storage.
func (c *cli) newInbox(ctx context.Context) (*inbox.Inbox, error) {
	if _, err := c.user(); err != nil {
		return nil, err
	}
	perms := inbox.NewPermissions(c.storage, terminalPrompter{in: c.in, out: os.Stderr})
	in := inbox.New(c.api, perms, inbox.Options{
		Desktop: terminalDesktop{out: Out},
		Notices: c.notices,
	})
	if err := in.Load(ctx); err != nil {
		return nil, err
	}
	return in, nil
}

func (c *cli) notifications(ctx context.Context, opts docopt.Opts) error {
	in, err := c.newInbox(ctx)
	if err != nil {
		return err
	}
	printInbox(in)
	if watch, _ := opts.Bool("--watch"); !watch {
		return nil
	}
	return c.watchInbox(ctx, in)
}

func (c *cli) watchInbox(ctx context.Context, in *inbox.Inbox) error {
	if _, err := in.RequestPermission(ctx); err != nil {
		return err
	}
	in.OnChange(func() { Out.Printf("📬 %d unread", in.Unread()) })
	if err := in.Watch(ctx, c.api, c.sessions.User().ID); err != nil {
		return err
	}
	defer in.Close()
	Out.Println("👀 Watching notifications, Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

func (c *cli) read(ctx context.Context, opts docopt.Opts) error {
	in, err := c.newInbox(ctx)
	if err != nil {
		return err
	}
	if all, _ := opts.Bool("--all"); all {
		if err := in.MarkAllRead(ctx); err != nil {
			return err
		}
	} else {
		id, err := parseID(opts, "<id>")
		if err != nil {
			return err
		}
		if err := in.MarkRead(ctx, id); err != nil {
			return err
		}
	}
	Out.Printf("📬 %d unread", in.Unread())
	return nil
}

func (c *cli) remove(ctx context.Context, opts docopt.Opts) error {
	id, err := parseID(opts, "<id>")
	if err != nil {
		return err
	}
	in, err := c.newInbox(ctx)
	if err != nil {
		return err
	}
	return in.Remove(ctx, id)
}

func (c *cli) clear(ctx context.Context, _ docopt.Opts) error {
	in, err := c.newInbox(ctx)
	if err != nil {
		return err
	}
	if err := in.ClearAll(ctx); err != nil {
		return err
	}
	Out.Println("🧹 Notifications cleared")
	return nil
}

func (c *cli) prefs(ctx context.Context, opts docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	p, err := c.api.Preferences(ctx)
	if err != nil {
		return err
	}
	changed := false
	for flag, field := range map[string]*bool{
		"--likes":     &p.LikesAndComments,
		"--feed":      &p.FeedPosts,
		"--community": &p.CommunityPosts,
	} {
		s, _ := opts.String(flag)
		if s == "" {
			continue
		}
		on, err := parseSwitch(s)
		if err != nil {
			return apperr.Invalid(strings.TrimPrefix(flag, "--"), "%v", err)
		}
		*field = on
		changed = true
	}
	if changed {
		if p, err = c.api.UpdatePreferences(ctx, *p); err != nil {
			return err
		}
	}
	Out.Printf("Likes & comments: %s", onOff(p.LikesAndComments))
	Out.Printf("Feed posts:       %s", onOff(p.FeedPosts))
	Out.Printf("Community posts:  %s", onOff(p.CommunityPosts))
	return nil
}

func (c *cli) profile(ctx context.Context, opts docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	var upd models.ProfileUpdate
	if name, _ := opts.String("--name"); name != "" {
		upd.DisplayName = &name
	}
	if bio, _ := opts.String("--bio"); bio != "" {
		upd.Bio = &bio
	}

	var u *models.User
	var err error
	if upd.DisplayName != nil || upd.Bio != nil {
		if u, err = c.api.UpdateProfile(ctx, upd); err != nil {
			return err
		}
	}
	if path, _ := opts.String("--avatar"); path != "" {
		name, contentType, data, err := readImageFile(path)
		if err != nil {
			return err
		}
		if u, err = c.api.UploadAvatar(ctx, name, contentType, data); err != nil {
			return err
		}
	}
	if u == nil {
		if u, err = c.api.Profile(ctx); err != nil {
			return err
		}
	} else {
		c.notices.Notice(notice.Notice{Title: "Perfil atualizado", Variant: notice.Success})
	}
	if err := c.sessions.UpdateUser(ctx, *u); err != nil {
		return err
	}
	printUser(u)

	posts, err := c.api.MyPosts(ctx)
	if err != nil {
		return err
	}
	Out.Printf("📝 %d post(s)", len(posts))
	for _, p := range posts {
		Out.Printf("   [%s] %s  %s", p.Kind, p.CreatedAt.Format("02/01/2006"), preview(p.Body, 60))
	}
	return nil
}

// watch follows both walls and the inbox until interrupted.
func (c *cli) watch(ctx context.Context, _ docopt.Opts) error {
	if _, err := c.user(); err != nil {
		return err
	}
	for _, kind := range []models.PostKind{models.PostKindFeed, models.PostKindCommunity} {
		view := wall.NewView(kind, c.api, c.sessions, c.notices)
		if err := view.Reload(ctx); err != nil {
			return err
		}
		view.OnChange(func() { Out.Printf("🔄 %s: %d post(s)", kind, len(view.Posts())) })
		if err := view.Watch(ctx, c.api); err != nil {
			return err
		}
		defer view.Close()
	}
	in, err := c.newInbox(ctx)
	if err != nil {
		return err
	}
	printInbox(in)
	return c.watchInbox(ctx, in)
}

func readImageFile(path string) (name, contentType string, data []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return "", "", nil, err
	}
	name = filepath.Base(path)
	return name, mime.TypeByExtension(strings.ToLower(filepath.Ext(name))), data, nil
}
