package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momversation/backend/internal/model/persona"
	"github.com/momversation/backend/internal/service/responder"
)

// newAskCommand runs the configured responder once without touching any
// session, for checking provider credentials and prompts.
func newAskCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Generate a single reply with the configured responder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			resp, err := responder.New(ctx, opts.cfg.AI, persona.Default())
			if err != nil {
				return fmt.Errorf("create responder: %w", err)
			}

			reply, err := resp.Generate(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
