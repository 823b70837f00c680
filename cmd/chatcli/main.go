package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fuddly/internal/client"
	"fuddly/internal/client/chatsync"
	"fuddly/pkg/logger"
)

func main() {
	var (
		server string
		token  string
		userID string
	)
	flag.StringVar(&server, "server", "http://localhost:8080", "chat server base URL")
	flag.StringVar(&token, "token", os.Getenv("CHAT_TOKEN"), "Firebase ID token (or CHAT_TOKEN)")
	flag.StringVar(&userID, "user", "", "your user id")
	flag.Parse()

	if token == "" || userID == "" {
		fmt.Println("both -token and -user are required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(server, token, nil)
	socket := client.NewSocket(wsURL(server), token)
	store := chatsync.NewStore(userID)
	syncer := chatsync.NewSyncer(store, api, socket)

	socket.OnFrame(syncer.HandleEvent)
	socket.OnReconnect(syncer.Resync)
	syncer.OnError(func(message string) {
		fmt.Printf("! %s\n", message)
	})

	store.Subscribe(func() {
		active := store.Active()
		if active == "" {
			return
		}
		msgs := store.Messages(active)
		if len(msgs) == 0 {
			return
		}
		last := msgs[len(msgs)-1]
		fmt.Printf("[%s] %s: %s\n", last.CreatedAt.Local().Format(time.Kitchen), last.SenderID, last.Text)
	})

	if err := syncer.LoadConversations(ctx); err != nil {
		fmt.Printf("load conversations: %v\n", err)
		os.Exit(1)
	}

	go func() {
		if err := socket.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Socket stopped: %v", err)
			stop()
		}
	}()

	printHelp()
	repl(ctx, api, syncer)
}

func repl(ctx context.Context, api *client.API, syncer *chatsync.Syncer) {
	store := syncer.Store()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		cmd, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch cmd {
		case "":
		case "list", "ls":
			for _, c := range store.Conversations() {
				title := c.ProductID
				if c.Product != nil && c.Product.Title != "" {
					title = c.Product.Title
				}
				fmt.Printf("%s  %-30s unread=%d\n", c.ID, title, c.UnreadCount)
			}
			fmt.Printf("total unread: %d\n", store.TotalUnread())
		case "new":
			args := strings.Fields(rest)
			if len(args) != 2 {
				fmt.Println("usage: new <productId> <sellerId>")
				continue
			}
			conv, created, cerr := api.CreateConversation(ctx, args[0], store.UserID(), args[1])
			if cerr != nil {
				err = cerr
				break
			}
			fmt.Printf("conversation %s (created=%v)\n", conv.ID, created)
			err = syncer.LoadConversations(ctx)
		case "open":
			if err = syncer.Open(ctx, rest); err == nil {
				for _, m := range store.Messages(rest) {
					fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), m.SenderID, m.Text)
				}
			}
		case "older":
			var n int
			if n, err = syncer.LoadOlder(ctx, store.Active()); err == nil {
				fmt.Printf("loaded %d older messages\n", n)
			}
		case "close":
			err = syncer.Open(ctx, "")
		case "send", "s":
			_, err = syncer.Send(ctx, store.Active(), rest)
		case "resync":
			err = syncer.Resync(ctx)
		case "help":
			printHelp()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}

		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printHelp() {
	fmt.Println("commands: list | new <productId> <sellerId> | open <id> | older | send <text> | close | resync | quit")
}

func wsURL(server string) string {
	server = strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(server, "https://"):
		return "wss://" + strings.TrimPrefix(server, "https://") + "/ws"
	case strings.HasPrefix(server, "http://"):
		return "ws://" + strings.TrimPrefix(server, "http://") + "/ws"
	}
	return server + "/ws"
}
