package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/actions/internal/enqueue"
)

// NewTaskCmd создаёт группу команд для управления tasks.
func NewTaskCmd(servicesFn ServicesFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage action tasks",
	}

	cmd.AddCommand(newTaskEnqueueCmd(servicesFn, outputFn))

	return cmd
}

func newTaskEnqueueCmd(servicesFn ServicesFn, outputFn func() *Output) *cobra.Command {
	var spaceID, apiKeyEnv string
	var params []string

	cmd := &cobra.Command{
		Use:   "enqueue ACTION_ID",
		Short: "Enqueue an action for deferred execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			p, err := parseKeyValues(params)
			if err != nil {
				return fmt.Errorf("--param: %w", err)
			}

			// Ключ берём из окружения, чтобы он не попал в историю shell
			var apiKey string
			if apiKeyEnv != "" {
				apiKey = os.Getenv(apiKeyEnv)
				if apiKey == "" {
					return fmt.Errorf("environment variable %s is empty", apiKeyEnv)
				}
			}

			return withServices(cmd.Context(), servicesFn, func(s *Services) error {
				ref, err := s.Tasks.Enqueue(cmd.Context(), enqueue.EnqueueRequest{
					SpaceID:  spaceID,
					ActionID: args[0],
					Params:   p,
					APIKey:   apiKey,
				})
				if err != nil {
					return err
				}

				out.Notice("Task enqueued: %s", ref.ActionTaskParamsID)
				return out.Record(ref,
					Field{"SPACE", ref.SpaceID},
					Field{"ACTION_TASK_PARAMS_ID", ref.ActionTaskParamsID},
				)
			})
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "Space ID (default space if empty)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Action params as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&apiKeyEnv, "api-key-env", "", "Name of the environment variable holding the API key")

	return cmd
}
