package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momversation/backend/internal/model/chat"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/internal/session"
)

const chatHelp = `commands:
  /topics     list quick topics
  /topic N    send quick topic N
  /retry      ask again for the last unanswered message
  /reload     reload the conversation after a storage error
  /new        start a new visit with a fresh session
  /quit       leave`

func newChatCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := newBackend(ctx, opts)
			if err != nil {
				return err
			}

			identity, closeIdentity := newIdentity(opts)
			defer closeIdentity()

			return runChat(ctx, b, identity, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, b backend, identity *session.Identity, in io.Reader, out io.Writer) error {
	conv := b.Open(identity.Get(ctx), out)
	if err := attach(ctx, conv, out); err != nil {
		return err
	}
	fmt.Fprintln(out, "(type /help for commands)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/help":
			fmt.Fprintln(out, chatHelp)
		case line == "/topics":
			for i, topic := range conv.Topics(ctx) {
				fmt.Fprintf(out, "  %d. %s\n", i+1, topic)
			}
		case strings.HasPrefix(line, "/topic "):
			topic, ok := pickTopic(conv.Topics(ctx), strings.TrimPrefix(line, "/topic "))
			if !ok {
				fmt.Fprintln(out, "unknown topic, see /topics")
				continue
			}
			fmt.Fprintf(out, "you> %s\n", topic)
			turn, err := conv.Send(ctx, topic)
			report(out, turn, err)
		case line == "/retry":
			turn, err := conv.Retry(ctx)
			report(out, turn, err)
		case line == "/reload":
			if err := attach(ctx, conv, out); err != nil {
				fmt.Fprintf(out, "still unavailable: %v\n", err)
			}
		case line == "/new":
			conv = b.Open(identity.Reset(ctx), out)
			if err := attach(ctx, conv, out); err != nil {
				return err
			}
		default:
			turn, err := conv.Send(ctx, line)
			report(out, turn, err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func attach(ctx context.Context, conv conversation, out io.Writer) error {
	messages, err := conv.Attach(ctx)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	for _, m := range messages {
		printMessage(out, m)
	}
	return nil
}

func report(out io.Writer, turn chat.Turn, err error) {
	switch {
	case err == nil:
		printMessage(out, *turn.Bot)
	case errors.Is(err, chat.ErrGenerationUnavailable):
		fmt.Fprintln(out, "(your message was saved but no reply came back, type /retry to ask again)")
	case errors.Is(err, chat.ErrInvalidInput):
		fmt.Fprintln(out, "(please type a message)")
	case errors.Is(err, chatService.ErrNothingToRetry):
		fmt.Fprintln(out, "(nothing to retry)")
	case errors.Is(err, chatService.ErrTurnInProgress):
		fmt.Fprintln(out, "(still waiting for the last reply)")
	case errors.Is(err, chat.ErrStoreUnavailable), errors.Is(err, chatService.ErrSessionErrored):
		fmt.Fprintf(out, "(could not reach storage: %v, type /reload to try again)\n", err)
	default:
		fmt.Fprintf(out, "(error: %v)\n", err)
	}
}

func printMessage(out io.Writer, m chat.Message) {
	who := "momversation"
	if m.IsUser {
		who = "you"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
}

func pickTopic(topics []string, raw string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > len(topics) {
		return "", false
	}
	return topics[n-1], true
}
