package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"story-studio/internal/application/story"
	"story-studio/internal/domain/entity"
	"story-studio/internal/infrastructure/persistence/memory"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		prompt string
		plans  []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one story per plan for a prompt",
		Long: `Send the prompt to the story service once per plan, one request after another,
and print the id of every story that was created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(plans) == 0 {
				plans = c.cfg.Story.Plans
			}
			resolved, err := c.registry.Resolve(plans)
			if err != nil {
				return err
			}

			client, err := c.newBackend(c.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orchestrator := story.NewOrchestrator(client, memory.NewSessionStore(0), resolved)
			sub, err := orchestrator.Submit(ctx, uuid.NewString(), prompt)
			if err != nil {
				return err
			}

			printSubmission(cmd.OutOrStdout(), sub)
			if sub.Failed() == len(sub.Attempts) {
				return fmt.Errorf("all %d story requests failed", sub.Failed())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "What the story should be about")
	cmd.Flags().StringSliceVar(&plans, "plan", nil, "Plans to run in order (default: story.plans from config)")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func printSubmission(w io.Writer, sub *story.Submission) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d request(s)", len(sub.Attempts))))
	for _, a := range sub.Attempts {
		switch a.Status {
		case entity.AttemptStatusCreated:
			fmt.Fprintf(w, "  %-10s %s %s\n", a.Plan, createdStyle.Render(a.StoryID), dimStyle.Render(entity.StoryPath(a.StoryID)))
		case entity.AttemptStatusEmpty:
			fmt.Fprintf(w, "  %-10s %s\n", a.Plan, emptyStyle.Render("no story created"))
		default:
			fmt.Fprintf(w, "  %-10s %s %s\n", a.Plan, failedStyle.Render("failed"), dimStyle.Render(a.ErrorMessage))
		}
	}
	if sub.State.Notice != "" {
		fmt.Fprintln(w, failedStyle.Render(sub.State.Notice))
	}
}
