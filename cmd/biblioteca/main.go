package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/config"

	"github.com/docopt/docopt-go"
)

const Version = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", 0)
}

const usage = `Biblioteca Mística client.

The API url, state directory and chat webhook come from BIBLIOTECA_API,
BIBLIOTECA_STATE_DIR and CHAT_WEBHOOK_URL.

Usage:
    biblioteca login [--email=<email>]
    biblioteca logout
    biblioteca whoami
    biblioteca modules
    biblioteca module <slug>
    biblioteca wall (feed|community) [--watch]
    biblioteca post (feed|community) <body> [--title=<title>] [--type=<type>] [--image=<path>]
    biblioteca like (feed|community) <post_id>
    biblioteca comment (feed|community) <post_id> <text>
    biblioteca delete (feed|community) <post_id>
    biblioteca notifications [--watch]
    biblioteca read (<id>|--all)
    biblioteca remove <id>
    biblioteca clear
    biblioteca prefs [--likes=<on_off>] [--feed=<on_off>] [--community=<on_off>]
    biblioteca profile [--name=<name>] [--bio=<bio>] [--avatar=<path>]
    biblioteca chat [--reset] [<message>]
    biblioteca watch
    biblioteca -h | --help
    biblioteca --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --email=<email>        Account email, prompted when omitted.
    --watch                Keep running and print realtime changes.
    --title=<title>        Feed post title.
    --type=<type>          Feed post type: info, warning or update.
    --image=<path>         Upload this image and attach it to the post.
    --all                  Mark every notification as read.
    --likes=<on_off>       Likes and comments on my posts.
    --feed=<on_off>        New feed posts.
    --community=<on_off>   New community posts.
    --name=<name>          New display name.
    --bio=<bio>            New bio.
    --avatar=<path>        Upload this image as the avatar.
    --reset                Start a new conversation.`

type command struct {
	name string
	run  func(*cli, context.Context, docopt.Opts) error
}

var commands = []command{
	{"login", (*cli).login},
	{"logout", (*cli).logout},
	{"whoami", (*cli).whoami},
	{"modules", (*cli).modules},
	{"module", (*cli).module},
	{"wall", (*cli).wall},
	{"post", (*cli).post},
	{"like", (*cli).like},
	{"comment", (*cli).comment},
	{"delete", (*cli).deletePost},
	{"notifications", (*cli).notifications},
	{"read", (*cli).read},
	{"remove", (*cli).remove},
	{"clear", (*cli).clear},
	{"prefs", (*cli).prefs},
	{"profile", (*cli).profile},
	{"chat", (*cli).chat},
	{"watch", (*cli).watch},
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		Err.Fatalf("❌ %v", err)
	}
	os.Exit(run(opts))
}

// run executes the selected command and returns the exit code. It returns
// instead of exiting so deferred cleanup runs.
func run(opts docopt.Opts) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCLI(ctx, config.LoadClient())
	if err != nil {
		Err.Printf("❌ [STARTUP] %v", err)
		return 1
	}
	defer func() {
		if err := c.Close(); err != nil {
			Err.Printf("⚠️ [REDIS] Close failed: %v", err)
		}
	}()

	for _, cmd := range commands {
		if ok, _ := opts.Bool(cmd.name); !ok {
			continue
		}
		if err := cmd.run(c, ctx, opts); err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				_ = c.sessions.Clear(context.Background())
				Err.Println("❌ Session expired or invalid, run 'biblioteca login'")
				return 1
			}
			Err.Printf("❌ %v", err)
			return 1
		}
		return 0
	}
	return 0
}
