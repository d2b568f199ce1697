package cli

import "github.com/spf13/cobra"

// NewJanitorCmd создаёт группу команд janitor'а.
func NewJanitorCmd(servicesFn ServicesFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Clean up stale action task params",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run-once",
		Short: "Run a single cleanup pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withServices(cmd.Context(), servicesFn, func(s *Services) error {
				res, err := s.Janitor.Tick(cmd.Context())
				if err != nil {
					return err
				}

				if !res.Leader {
					out.Notice("Another janitor holds the lock, nothing done")
				} else {
					out.Notice("Deleted %d stale action_task_params", res.Deleted)
				}
				return out.Record(res,
					Field{"LEADER", res.Leader},
					Field{"DELETED", res.Deleted},
					Field{"BATCHES", res.Batches},
				)
			})
		},
	})

	return cmd
}
