package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/patcher"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewPatchCommand(a *app) *cobra.Command {
	var (
		dryRun     bool
		workflowID string
		backupDir  string
		show       bool
	)

	cmd := &cobra.Command{
		Use:   "patch <recipe.yaml>",
		Short: "Apply a patch recipe to a workflow",
		Long: `Fetch the recipe's workflow, apply every step in order and replace the
workflow in one PUT. The fetched graph is written to --backup-dir before the
save. With --dry-run nothing is saved and the changes are only reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipe, err := patcher.LoadRecipe(args[0])
			if err != nil {
				return err
			}

			if workflowID == "" {
				workflowID = recipe.WorkflowID
			}
			if workflowID == "" {
				return fmt.Errorf("recipe %s has no workflow_id and --workflow was not given", args[0])
			}

			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			var store patcher.GraphStore = client
			if backupDir != "" && !dryRun {
				store = &backupStore{GraphStore: client, path: filepath.Join(backupDir, recipe.BackupName(workflowID, time.Now()))}
			}

			result, err := patcher.New(patcher.PatcherDependencies{Store: store}).
				Patch(cmd.Context(), workflowID, recipe.Mutator(), recipe.Options(dryRun)...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printChanges(out, recipe.Name, workflowID, result)

			if show {
				return printJSON(out, result.After)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the changes without saving")
	cmd.Flags().StringVar(&workflowID, "workflow", "", "Override the recipe's workflow_id")
	cmd.Flags().StringVar(&backupDir, "backup-dir", "backups", "Directory for pre-save snapshots, empty to disable")
	cmd.Flags().BoolVar(&show, "show", false, "Print the resulting workflow JSON")

	return cmd
}

func printChanges(out io.Writer, name, workflowID string, result *patcher.Result) {
	state := "dry run, not saved"
	if result.Saved {
		state = "saved"
	}

	fmt.Fprintf(out, "%s on %s: %s\n", name, workflowID, state)

	changes := result.Changes
	if changes.Empty() {
		fmt.Fprintln(out, "  no changes")
		return
	}

	list := func(label string, names []string) {
		if len(names) > 0 {
			fmt.Fprintf(out, "  %-9s %s\n", label, strings.Join(names, ", "))
		}
	}
	list("added", changes.AddedNodes)
	list("removed", changes.RemovedNodes)
	list("changed", changes.ChangedNodes)

	if changes.ConnectionsChanged {
		fmt.Fprintln(out, "  connections changed")
	}
	if changes.StaticDataChanged {
		fmt.Fprintln(out, "  static data changed")
	}
	if changes.SettingsChanged {
		fmt.Fprintln(out, "  settings changed")
	}
	if changes.NameChanged {
		fmt.Fprintln(out, "  name changed")
	}
}

// backupStore writes the graph as fetched to path right before the save, so
// a rejected or wrong patch can be restored by hand.
type backupStore struct {
	patcher.GraphStore
	path    string
	fetched *domain.WorkflowGraph
}

func (s *backupStore) GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error) {
	graph, err := s.GraphStore.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	s.fetched = graph.Clone()

	return graph, nil
}

func (s *backupStore) UpdateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error) {
	if s.fetched != nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}

		if err := writeJSONFile(s.path, s.fetched); err != nil {
			return nil, fmt.Errorf("failed to write backup: %w", err)
		}

		log.Info().Str("path", s.path).Str("workflow_id", graph.ID).Msg("Wrote workflow backup")
	}

	return s.GraphStore.UpdateWorkflow(ctx, graph)
}
