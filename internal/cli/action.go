package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/enqueue"
)

// NewActionCmd создаёт группу команд для управления actions.
func NewActionCmd(servicesFn ServicesFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Manage actions",
	}

	cmd.AddCommand(
		newActionCreateCmd(servicesFn, outputFn),
		newActionTypesCmd(outputFn),
	)

	return cmd
}

func newActionCreateCmd(servicesFn ServicesFn, outputFn func() *Output) *cobra.Command {
	var spaceID, typeID, name string
	var config, secrets []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new action",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := parseKeyValues(config)
			if err != nil {
				return fmt.Errorf("--config: %w", err)
			}
			sec, err := parseKeyValues(secrets)
			if err != nil {
				return fmt.Errorf("--secret: %w", err)
			}

			return withServices(cmd.Context(), servicesFn, func(s *Services) error {
				obj, err := s.Actions.CreateAction(cmd.Context(), enqueue.CreateActionRequest{
					SpaceID:      spaceID,
					ActionTypeID: typeID,
					Name:         name,
					Config:       cfg,
					Secrets:      sec,
				})
				if err != nil {
					return err
				}

				out.Notice("Action created: %s", obj.ID)
				return out.Record(
					map[string]any{"id": obj.ID, "action_type_id": typeID, "name": name, "namespace": obj.Namespace},
					Field{"ID", obj.ID},
					Field{"TYPE", typeID},
					Field{"NAME", name},
					Field{"NAMESPACE", obj.Namespace},
				)
			})
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "Space ID (default space if empty)")
	cmd.Flags().StringVar(&typeID, "type", "", "Action type, e.g. .webhook (required)")
	cmd.Flags().StringVar(&name, "name", "", "Action name (required)")
	cmd.Flags().StringSliceVar(&config, "config", nil, "Config values as KEY=VALUE (repeatable)")
	cmd.Flags().StringSliceVar(&secrets, "secret", nil, "Secret values as KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newActionTypesCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List built-in action types",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			registry := actions.NewRegistry()

			type typeInfo struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}

			ids := registry.List()
			rows := make([][]string, 0, len(ids))
			infos := make([]typeInfo, 0, len(ids))
			for _, id := range ids {
				t, err := registry.Get(id)
				if err != nil {
					return err
				}
				rows = append(rows, []string{id, t.Name()})
				infos = append(infos, typeInfo{ID: id, Name: t.Name()})
			}

			return out.List(infos, []string{"ID", "NAME"}, rows)
		},
	}
}
