package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"healthchat-relay/internal/relayclient"
)

type clientConfig struct {
	server         string
	conversationID string
	timeout        time.Duration
}

func main() {
	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand(os.Stdin, os.Stdout)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}

func newCommand(in io.Reader, out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("relayctl", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "relayctl [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newAskCommand(out),
			newChatCommand(in, out),
			newHistoryCommand(out),
			newResetCommand(out),
		},
	}
}

// newFlagSet registers the flags shared by every subcommand.
func newFlagSet(name string, cfg *clientConfig) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")
	fs.StringVar(&cfg.server, "server", "http://localhost:3000", "relay base url")
	fs.StringVar(&cfg.conversationID, "conversation", "", "conversation id (optional)")
	fs.DurationVar(&cfg.timeout, "timeout", 3*time.Minute, "request timeout")
	return fs
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("RELAYCTL"),
	}
}

func newAskCommand(out io.Writer) *ffcli.Command {
	cfg := &clientConfig{}
	fs := newFlagSet("ask", cfg)
	stateless := fs.Bool("stateless", false, "send as a one-off question without history")

	return &ffcli.Command{
		Name:       "ask",
		ShortUsage: "relayctl ask [flags] <prompt...>",
		ShortHelp:  "send a single prompt",
		Options:    options(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				return errors.New("prompt is required")
			}
			client := relayclient.New(cfg.server, cfg.timeout)

			if *stateless {
				reply, err := client.AskStateless(ctx, prompt)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, reply)
				return nil
			}

			resp, err := client.Ask(ctx, cfg.conversationID, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Bot)
			if cfg.conversationID == "" {
				fmt.Fprintf(out, "\nconversation: %s\n", resp.ConversationID)
			}
			return nil
		},
	}
}

func newChatCommand(in io.Reader, out io.Writer) *ffcli.Command {
	cfg := &clientConfig{}
	fs := newFlagSet("chat", cfg)

	return &ffcli.Command{
		Name:       "chat",
		ShortUsage: "relayctl chat [flags]",
		ShortHelp:  "interactive conversation, one prompt per line",
		Options:    options(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			client := relayclient.New(cfg.server, cfg.timeout)
			return runChat(ctx, client, cfg.conversationID, in, out)
		},
	}
}

func runChat(ctx context.Context, client *relayclient.Client, conversationID string, in io.Reader, out io.Writer) error {
	greeting, err := client.Greeting(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, greeting)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		prompt := strings.TrimSpace(scanner.Text())
		switch prompt {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		resp, err := client.Ask(ctx, conversationID, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if conversationID == "" {
			conversationID = resp.ConversationID
			fmt.Fprintf(out, "(conversation %s)\n", conversationID)
		}
		fmt.Fprintln(out, resp.Bot)
	}
}

func newHistoryCommand(out io.Writer) *ffcli.Command {
	cfg := &clientConfig{}
	fs := newFlagSet("history", cfg)

	return &ffcli.Command{
		Name:       "history",
		ShortUsage: "relayctl history -conversation <id>",
		ShortHelp:  "print a conversation's turns",
		Options:    options(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.conversationID == "" {
				return errors.New("-conversation is required")
			}
			client := relayclient.New(cfg.server, cfg.timeout)
			turns, err := client.History(ctx, cfg.conversationID)
			if err != nil {
				return err
			}
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s\n", t.Role, t.Content)
			}
			return nil
		},
	}
}

func newResetCommand(out io.Writer) *ffcli.Command {
	cfg := &clientConfig{}
	fs := newFlagSet("reset", cfg)

	return &ffcli.Command{
		Name:       "reset",
		ShortUsage: "relayctl reset -conversation <id>",
		ShortHelp:  "forget a conversation",
		Options:    options(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.conversationID == "" {
				return errors.New("-conversation is required")
			}
			client := relayclient.New(cfg.server, cfg.timeout)
			if err := client.Reset(ctx, cfg.conversationID); err != nil {
				return err
			}
			fmt.Fprintf(out, "conversation %s reset\n", cfg.conversationID)
			return nil
		},
	}
}
