package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"story-studio/internal/application/story"
	"story-studio/internal/domain/entity"
)

func newChatCmd(c *cli) *cobra.Command {
	var in story.ChatInput

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Stream an async chat about a story",
		Long: `Start an async chat for a story and print every streamed frame until the
service sends the terminate frame or the command is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newBackend(c.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			frames := 0
			relay := story.NewChatRelay(client, c.registry)
			err = relay.Relay(ctx, in, func(f entity.ChatFrame) error {
				frames++
				if f.Terminal() {
					return nil
				}
				_, err := fmt.Fprintln(out, string(f.Raw))
				return err
			})
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("interrupted after %d frame(s)", frames)))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("done, %d frame(s)", frames)))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.StoryID, "story-id", "", "Story to chat about")
	cmd.Flags().StringVar(&in.Plan, "plan", "", "Plan preset for the chat (default: technical chat preset)")
	cmd.Flags().StringVarP(&in.Query, "query", "q", "", "Question to ask")
	_ = cmd.MarkFlagRequired("story-id")
	return cmd
}
