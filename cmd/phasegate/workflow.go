package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"phasegate/internal/app"
	"phasegate/internal/domain"
	"phasegate/internal/engine"
	"phasegate/internal/repo"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectShowCmd())
	cmd.AddCommand(projectUpdateCmd())
	cmd.AddCommand(projectDeleteCmd())
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var initWorkflow, initGates bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				opts.ActorID = actorID()
				p, err := rt.Engine.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				if initWorkflow {
					if _, err := rt.Engine.InitializeWorkflow(ctx, p.ID, opts.ActorID); err != nil {
						return err
					}
				}
				if initGates {
					if _, err := rt.Engine.InitializeQualityGates(ctx, p.ID, opts.ActorID); err != nil {
						return err
					}
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (planning, in_progress, on_hold, completed, cancelled)")
	cmd.Flags().IntVar(&opts.Progress, "progress", 0, "progress 0-100")
	cmd.Flags().StringVar(&opts.ObjectiveID, "objective-id", "", "linked objective")
	cmd.Flags().BoolVar(&initWorkflow, "init-workflow", false, "also create the five workflow phases")
	cmd.Flags().BoolVar(&initGates, "init-gates", false, "also create the five quality gates")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projects, err := rt.Engine.ListProjects(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Progress", "Objective"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Name, badge(p.Status), fmt.Sprintf("%d%%", p.Progress), deref(p.ObjectiveID)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.ObjectiveID, "objective-id", "", "objective filter")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				p, err := rt.Engine.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, description, status, objectiveID string
	var progress int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				opts := engine.ProjectUpdateOptions{
					ID:          projectID,
					Name:        optional(cmd, "name", name),
					Description: optional(cmd, "description", description),
					Status:      status,
					ObjectiveID: optional(cmd, "objective-id", objectiveID),
					ActorID:     actorID(),
				}
				if cmd.Flags().Changed("progress") {
					opts.Progress = &progress
				}
				p, err := rt.Engine.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress 0-100")
	cmd.Flags().StringVar(&objectiveID, "objective-id", "", "linked objective (empty string unlinks)")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete a project with its phases, tasks and gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				return rt.Engine.DeleteProject(ctx, projectID, actorID())
			})
		},
	}
}

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Project workflow phases and metrics",
	}
	cmd.AddCommand(workflowInitCmd())
	cmd.AddCommand(workflowShowCmd())
	cmd.AddCommand(workflowMetricsCmd())
	return cmd
}

func workflowInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the five workflow phases for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				phases, err := rt.Engine.InitializeWorkflow(ctx, projectID, actorID())
				if err != nil {
					return err
				}
				return renderPhases(phases)
			})
		},
	}
}

func workflowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show phases with task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				summary, err := rt.Engine.ProjectWorkflow(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				tw := newTable()
				header := table.Row{"ID", "Phase", "Status", "Progress", "Tasks"}
				for _, st := range domain.TaskStatuses {
					header = append(header, domain.DisplayName(st))
				}
				tw.AppendHeader(header)
				for _, s := range summary {
					row := table.Row{s.ID, domain.DisplayName(s.PhaseType), badge(s.Status), fmt.Sprintf("%d%%", s.Progress), s.TaskTotal}
					for _, st := range domain.TaskStatuses {
						row = append(row, s.TaskCounts[st])
					}
					tw.AppendRow(row)
				}
				tw.Render()
				return nil
			})
		},
	}
}

func workflowMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Average phase progress per phase type across all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				m, err := rt.Engine.GetWorkflowMetrics(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					out := make(map[string]int, len(m))
					for pt, v := range m {
						out[string(pt)] = v
					}
					return printJSON(out)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Phase", "Progress"})
				for _, pt := range domain.PhaseTypes {
					tw.AppendRow(table.Row{domain.DisplayName(pt), fmt.Sprintf("%d%%", m[pt])})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func phaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Manage workflow phases",
	}
	cmd.AddCommand(phaseCreateCmd())
	cmd.AddCommand(phaseListCmd())
	cmd.AddCommand(phaseStatusCmd())
	cmd.AddCommand(phaseUpdateCmd())
	cmd.AddCommand(phaseDeleteCmd())
	return cmd
}

func phaseCreateCmd() *cobra.Command {
	var opts engine.PhaseCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a single phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				opts.ProjectID = projectID
				opts.ActorID = actorID()
				ph, err := rt.Engine.CreatePhase(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ph)
			})
		},
	}
	cmd.Flags().StringVar(&opts.PhaseType, "type", "", "phase type (planning, architecture, implementation, testing, deployment)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "initial status")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func phaseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List phases in canonical order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				phases, err := rt.Engine.ListPhases(ctx, projectID)
				if err != nil {
					return err
				}
				return renderPhases(phases)
			})
		},
	}
}

func phaseStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <phase-id> <status>",
		Short: "Set a phase status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				ph, err := rt.Engine.SetPhaseStatus(ctx, args[0], args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(ph)
			})
		},
	}
}

func phaseUpdateCmd() *cobra.Command {
	var status, start, end, notes string
	cmd := &cobra.Command{
		Use:   "update <phase-id>",
		Short: "Update phase fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				ph, err := rt.Engine.UpdatePhase(ctx, engine.PhaseUpdateOptions{
					ID:        args[0],
					Status:    status,
					StartDate: optional(cmd, "start", start),
					EndDate:   optional(cmd, "end", end),
					Notes:     optional(cmd, "notes", notes),
					ActorID:   actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ph)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&start, "start", "", "start date (empty clears)")
	cmd.Flags().StringVar(&end, "end", "", "end date (empty clears)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func phaseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <phase-id>",
		Short: "Delete a phase and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.DeletePhase(ctx, args[0], actorID())
			})
		},
	}
}

func renderPhases(phases []domain.WorkflowPhase) error {
	if viper.GetBool("json") {
		return printJSON(phases)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Phase", "Status", "Start", "End"})
	for _, ph := range phases {
		tw.AppendRow(table.Row{ph.ID, domain.DisplayName(ph.PhaseType), badge(ph.Status), deref(ph.StartDate), deref(ph.EndDate)})
	}
	tw.Render()
	return nil
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage workflow tasks",
	}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskTypesCmd())
	return cmd
}

func parseJSONObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return out, nil
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var deliverables, integrations string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Deliverables, err = parseJSONObject("deliverables", deliverables); err != nil {
				return err
			}
			if opts.Integrations, err = parseJSONObject("integrations", integrations); err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				opts.ActorID = actorID()
				t, err := rt.Engine.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.PhaseID, "phase-id", "", "owning phase")
	cmd.Flags().StringVar(&opts.TaskType, "type", "", "task type (see 'phasegate task types')")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (todo, in_progress, in_review, completed, blocked)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high, critical)")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&deliverables, "deliverables", "", "deliverables as a JSON object")
	cmd.Flags().StringVar(&integrations, "integrations", "", "integrations as a JSON object")
	_ = cmd.MarkFlagRequired("phase-id")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of a phase or project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if f.PhaseID == "" {
					projectID, err := resolveProject(ctx, rt)
					if err != nil {
						return err
					}
					f.ProjectID = projectID
				}
				tasks, err := rt.Engine.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Priority", "Assignee", "Due"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, domain.DisplayName(t.TaskType), badge(t.Status), t.Priority, deref(t.AssigneeID), deref(t.DueDate)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.PhaseID, "phase-id", "", "phase filter (defaults to every phase of the project)")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Engine.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Set a task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Engine.SetTaskStatus(ctx, args[0], args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var taskType, title, description, status, priority, assignee, due, deliverables, integrations string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:          args[0],
				TaskType:    taskType,
				Title:       optional(cmd, "title", title),
				Description: optional(cmd, "description", description),
				Status:      status,
				Priority:    priority,
				AssigneeID:  optional(cmd, "assignee-id", assignee),
				DueDate:     optional(cmd, "due", due),
				ActorID:     actorID(),
			}
			var err error
			if opts.Deliverables, err = parseJSONObject("deliverables", deliverables); err != nil {
				return err
			}
			if opts.Integrations, err = parseJSONObject("integrations", integrations); err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Engine.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&taskType, "type", "", "task type")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&assignee, "assignee-id", "", "assignee (empty clears)")
	cmd.Flags().StringVar(&due, "due", "", "due date (empty clears)")
	cmd.Flags().StringVar(&deliverables, "deliverables", "", "deliverables as a JSON object")
	cmd.Flags().StringVar(&integrations, "integrations", "", "integrations as a JSON object")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.DeleteTask(ctx, args[0], actorID())
			})
		},
	}
}

func taskTypesCmd() *cobra.Command {
	var phase string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the task type catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			phases := domain.PhaseTypes
			if phase != "" {
				pt := domain.PhaseType(phase)
				if domain.PhaseIndex(pt) < 0 {
					return fmt.Errorf("unknown phase %q", phase)
				}
				phases = []domain.PhaseType{pt}
			}
			if viper.GetBool("json") {
				out := map[string][]domain.TaskType{}
				for _, pt := range phases {
					out[string(pt)] = domain.TaskTypesFor(pt)
				}
				return printJSON(out)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"Phase", "Type", "Name"})
			for _, pt := range phases {
				for _, tt := range domain.TaskTypesFor(pt) {
					tw.AppendRow(table.Row{pt, tt, domain.DisplayName(tt)})
				}
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&phase, "phase", "", "restrict to one phase type")
	return cmd
}
