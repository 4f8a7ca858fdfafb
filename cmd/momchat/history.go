package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the current visit's conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := newBackend(ctx, opts)
			if err != nil {
				return err
			}

			identity, closeIdentity := newIdentity(opts)
			defer closeIdentity()

			messages, err := b.History(ctx, identity.Get(ctx))
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "no messages yet")
				return nil
			}
			for _, m := range messages {
				printMessage(out, m)
			}
			return nil
		},
	}
}
