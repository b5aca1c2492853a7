package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"phasegate/internal/app"
	"phasegate/internal/engine"
)

func goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage strategic goals",
	}
	cmd.AddCommand(goalCreateCmd())
	cmd.AddCommand(goalListCmd())
	cmd.AddCommand(goalDeleteCmd())
	return cmd
}

func goalCreateCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a strategic goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				g, err := rt.Engine.CreateGoal(ctx, title, description, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List strategic goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				goals, err := rt.Engine.ListGoals(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(goals)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Owner"})
				for _, g := range goals {
					tw.AppendRow(table.Row{g.ID, g.Title, g.OwnerID})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func goalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete a goal with its objectives and key results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.DeleteGoal(ctx, args[0], actorID())
			})
		},
	}
}

func objectiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objective",
		Short: "Manage objectives",
	}
	cmd.AddCommand(objectiveCreateCmd())
	cmd.AddCommand(objectiveListCmd())
	cmd.AddCommand(objectiveShowCmd())
	cmd.AddCommand(objectiveUpdateCmd())
	cmd.AddCommand(objectiveDeleteCmd())
	return cmd
}

func objectiveCreateCmd() *cobra.Command {
	var goalID, title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an objective under a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				o, err := rt.Engine.CreateObjective(ctx, goalID, title, description, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&goalID, "goal-id", "", "owning goal")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	_ = cmd.MarkFlagRequired("goal-id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func objectiveListCmd() *cobra.Command {
	var goalID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objectives of a goal with progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				objectives, err := rt.Engine.ListObjectives(ctx, goalID)
				if err != nil {
					return err
				}
				views := make([]engine.ObjectiveView, 0, len(objectives))
				for _, o := range objectives {
					v, err := rt.Engine.GetObjective(ctx, o.ID)
					if err != nil {
						return err
					}
					views = append(views, v)
				}
				if viper.GetBool("json") {
					return printJSON(views)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Key Results", "Projects", "Progress"})
				for _, v := range views {
					tw.AppendRow(table.Row{v.ID, v.Title, len(v.KeyResults), len(v.Projects), fmt.Sprintf("%d%%", v.Progress)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&goalID, "goal-id", "", "owning goal")
	_ = cmd.MarkFlagRequired("goal-id")
	return cmd
}

func objectiveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <objective-id>",
		Short: "Show an objective with key results, linked projects and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				v, err := rt.Engine.GetObjective(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				fmt.Printf("%s  %s  progress %d%%\n", v.ID, v.Title, v.Progress)
				tw := newTable()
				tw.AppendHeader(table.Row{"Key Result", "Title", "Start", "Current", "Target", "Unit", "Progress"})
				for _, kr := range v.KeyResults {
					tw.AppendRow(table.Row{kr.ID, kr.Title, kr.StartValue, kr.CurrentValue, kr.TargetValue, kr.Unit, fmt.Sprintf("%.1f%%", kr.Progress)})
				}
				tw.Render()
				if len(v.Projects) > 0 {
					pw := newTable()
					pw.AppendHeader(table.Row{"Project", "Name", "Status"})
					for _, p := range v.Projects {
						pw.AppendRow(table.Row{p.ID, p.Name, badge(p.Status)})
					}
					pw.Render()
				}
				return nil
			})
		},
	}
}

func objectiveUpdateCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "update <objective-id>",
		Short: "Update an objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				o, err := rt.Engine.UpdateObjective(ctx, args[0], optional(cmd, "title", title), optional(cmd, "description", description), actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func objectiveDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <objective-id>",
		Short: "Delete an objective and its key results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.DeleteObjective(ctx, args[0], actorID())
			})
		},
	}
}

func keyResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kr",
		Aliases: []string{"key-result"},
		Short:   "Manage key results",
	}
	cmd.AddCommand(keyResultCreateCmd())
	cmd.AddCommand(keyResultUpdateCmd())
	cmd.AddCommand(keyResultDeleteCmd())
	return cmd
}

func keyResultCreateCmd() *cobra.Command {
	var opts engine.KeyResultCreateOptions
	var current float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a key result (current defaults to start)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CurrentValue = optionalFloat(cmd, "current", current)
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				opts.ActorID = actorID()
				kr, err := rt.Engine.CreateKeyResult(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(engine.NewKeyResultView(kr))
			})
		},
	}
	cmd.Flags().StringVar(&opts.ObjectiveID, "objective-id", "", "owning objective")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.MetricType, "metric", "", "metric type (number, percentage, currency)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit label")
	cmd.Flags().Float64Var(&opts.StartValue, "start", 0, "start value")
	cmd.Flags().Float64Var(&opts.TargetValue, "target", 0, "target value")
	cmd.Flags().Float64Var(&current, "current", 0, "current value")
	_ = cmd.MarkFlagRequired("objective-id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func keyResultUpdateCmd() *cobra.Command {
	var title, metric, unit string
	var start, target, current float64
	cmd := &cobra.Command{
		Use:   "update <key-result-id>",
		Short: "Record a new value or edit a key result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.KeyResultUpdateOptions{
				ID:           args[0],
				Title:        optional(cmd, "title", title),
				MetricType:   metric,
				Unit:         optional(cmd, "unit", unit),
				StartValue:   optionalFloat(cmd, "start", start),
				TargetValue:  optionalFloat(cmd, "target", target),
				CurrentValue: optionalFloat(cmd, "current", current),
				ActorID:      actorID(),
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				kr, err := rt.Engine.UpdateKeyResult(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(engine.NewKeyResultView(kr))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&metric, "metric", "", "metric type")
	cmd.Flags().StringVar(&unit, "unit", "", "unit label")
	cmd.Flags().Float64Var(&start, "start", 0, "start value")
	cmd.Flags().Float64Var(&target, "target", 0, "target value")
	cmd.Flags().Float64Var(&current, "current", 0, "current value")
	return cmd
}

func keyResultDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-result-id>",
		Short: "Delete a key result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.DeleteKeyResult(ctx, args[0], actorID())
			})
		},
	}
}
