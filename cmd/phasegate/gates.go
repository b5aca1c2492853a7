package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"phasegate/internal/app"
	"phasegate/internal/domain"
	"phasegate/internal/engine"
)

func gateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Manage quality gates",
	}
	cmd.AddCommand(gateInitCmd())
	cmd.AddCommand(gateListCmd())
	cmd.AddCommand(gateShowCmd())
	cmd.AddCommand(gateUpdateCmd())
	cmd.AddCommand(gateDeliverableCmd())
	return cmd
}

func gateInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the five quality gates with seeded checklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				gates, err := rt.Engine.InitializeQualityGates(ctx, projectID, actorID())
				if err != nil {
					return err
				}
				return renderGates(gates)
			})
		},
	}
}

func gateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quality gates in fixed order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				projectID, err := resolveProject(ctx, rt)
				if err != nil {
					return err
				}
				gates, err := rt.Engine.GetProjectQualityGates(ctx, projectID)
				if err != nil {
					return err
				}
				return renderGates(gates)
			})
		},
	}
}

func gateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <gate-id>",
		Short: "Show a gate and its checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				g, err := rt.Engine.GetQualityGate(ctx, args[0])
				if err != nil {
					return err
				}
				return renderGate(g)
			})
		},
	}
}

func gateUpdateCmd() *cobra.Command {
	var status, deliverables, deliverablesFile, notes string
	cmd := &cobra.Command{
		Use:   "update <gate-id>",
		Short: "Update gate status, notes or the whole deliverables map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.GateUpdateOptions{
				ID:      args[0],
				Status:  status,
				Notes:   optional(cmd, "notes", notes),
				ActorID: actorID(),
			}
			switch {
			case deliverablesFile != "":
				data, err := os.ReadFile(deliverablesFile)
				if err != nil {
					return err
				}
				opts.Deliverables = data
			case cmd.Flags().Changed("deliverables"):
				opts.Deliverables = []byte(deliverables)
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				g, err := rt.Engine.UpdateQualityGate(ctx, opts)
				if err != nil {
					return err
				}
				return renderGate(g)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status (not_started, in_progress, completed, blocked)")
	cmd.Flags().StringVar(&deliverables, "deliverables", "", `deliverables JSON, e.g. {"qa_ttp":{"completed":true,"link":"..."}}`)
	cmd.Flags().StringVar(&deliverablesFile, "deliverables-file", "", "read deliverables JSON from a file")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func gateDeliverableCmd() *cobra.Command {
	var completed bool
	var link string
	cmd := &cobra.Command{
		Use:   "deliverable <gate-id> <key>",
		Short: "Update one checklist entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var completedPtr *bool
			if cmd.Flags().Changed("completed") {
				completedPtr = &completed
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				g, err := rt.Engine.SetDeliverable(ctx, args[0], args[1], completedPtr, optional(cmd, "link", link), actorID())
				if err != nil {
					return err
				}
				return renderGate(g)
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "mark completed (--completed=false to reopen)")
	cmd.Flags().StringVar(&link, "link", "", "evidence link")
	return cmd
}

func renderGates(gates []domain.QualityGate) error {
	views := make([]engine.GateView, 0, len(gates))
	for _, g := range gates {
		views = append(views, engine.NewGateView(g))
	}
	if viper.GetBool("json") {
		return printJSON(views)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Gate", "Status", "Checklist", "Missing"})
	for _, v := range views {
		done := len(v.RequiredDeliverables) - len(v.MissingDeliverables)
		tw.AppendRow(table.Row{v.ID, domain.DisplayName(v.Phase), badge(v.Status), fmt.Sprintf("%d/%d", done, len(v.RequiredDeliverables)), strings.Join(v.MissingDeliverables, ", ")})
	}
	tw.Render()
	return nil
}

func renderGate(g domain.QualityGate) error {
	v := engine.NewGateView(g)
	if viper.GetBool("json") {
		return printJSON(v)
	}
	fmt.Printf("%s  %s  %s\n", v.ID, domain.DisplayName(v.Phase), badge(v.Status))
	tw := newTable()
	tw.AppendHeader(table.Row{"Deliverable", "Required", "Completed", "Link"})
	required := map[string]bool{}
	for _, key := range v.RequiredDeliverables {
		required[key] = true
		d := v.Deliverables[key]
		tw.AppendRow(table.Row{key, "yes", d.Completed, d.Link})
	}
	for _, key := range slices.Sorted(maps.Keys(v.Deliverables)) {
		if !required[key] {
			d := v.Deliverables[key]
			tw.AppendRow(table.Row{key, "no", d.Completed, d.Link})
		}
	}
	tw.Render()
	if v.Notes != "" {
		fmt.Println("Notes:", v.Notes)
	}
	return nil
}
