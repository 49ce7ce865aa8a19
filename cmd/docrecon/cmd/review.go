package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/reviewstore"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

const (
	keyInvestigation = "investigation"
	keyAssignedTo    = "assigned-to"
)

// reviewCmd groups the review state commands
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage investigation state and assignees per document",
	Long: `Review reads and writes the reviewer-owned state of reconciliation items.
Saved state is applied to matching doc numbers on every reconcile run;
the computed status, variance and aging are never changed by it.

Examples:
  docrecon review set INV-2002 --investigation resolved --assigned-to Wei
  docrecon review get INV-2002
  docrecon review list --format json
  docrecon review delete INV-2002 --review-backend redis`,
}

var reviewSetCmd = &cobra.Command{
	Use:   "set DOC_NO",
	Short: "Save investigation state or assignee for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewSet,
}

var reviewGetCmd = &cobra.Command{
	Use:   "get DOC_NO",
	Short: "Show the saved state of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewGet,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every saved review state",
	Args:  cobra.NoArgs,
	RunE:  runReviewList,
}

var reviewDeleteCmd = &cobra.Command{
	Use:   "delete DOC_NO",
	Short: "Forget the saved state of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewDelete,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewSetCmd, reviewGetCmd, reviewListCmd, reviewDeleteCmd)

	for _, c := range []*cobra.Command{reviewSetCmd, reviewGetCmd, reviewListCmd, reviewDeleteCmd} {
		addStoreFlags(c)
	}

	reviewSetCmd.Flags().String(keyInvestigation, "", "under-investigation, resolved or approved")
	reviewSetCmd.Flags().String(keyAssignedTo, "", "reviewer responsible for the document")
	reviewListCmd.Flags().StringP(config.KeyFormat, "f", "console", "output format: console, json")
}

// withStore opens the configured store for the duration of fn
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store reviewstore.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store)
}

func runReviewSet(cmd *cobra.Command, args []string) error {
	investigation := viper.GetString(keyInvestigation)
	assignedTo := viper.GetString(keyAssignedTo)
	if investigation == "" && assignedTo == "" {
		return errors.ValidationError(errors.CodeInvalidValue, keyInvestigation, nil, nil).
			WithSuggestion("pass --investigation, --assigned-to or both")
	}

	return withStore(cmd, func(ctx context.Context, store reviewstore.Store) error {
		state, err := mergeReview(ctx, store, args[0], investigation, assignedTo)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, state); err != nil {
			return err
		}

		saved, err := store.Get(ctx, state.DocNo)
		if err != nil {
			return errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeStoreRead, "failed to read back review state")
		}

		logger.WithComponent("cli").WithFields(logger.Fields{
			"doc_no":        saved.DocNo,
			"investigation": saved.Investigation,
			"assigned_to":   saved.AssignedTo,
		}).Info("Saved review state")
		printStates(cmd, []models.ReviewState{saved})
		return nil
	})
}

// mergeReview starts from the saved state so setting one field keeps the other
func mergeReview(ctx context.Context, store reviewstore.Store, docNo, investigation, assignedTo string) (models.ReviewState, error) {
	state, err := store.Get(ctx, docNo)
	switch {
	case stderrors.Is(err, reviewstore.ErrNotFound):
		state = models.ReviewState{DocNo: docNo}
	case err != nil:
		return state, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeStoreRead, "failed to read review state")
	}

	if investigation != "" {
		state.Investigation = models.InvestigationState(investigation)
	}
	if assignedTo != "" {
		state.AssignedTo = assignedTo
	}
	// zero so the store stamps the write time
	state.UpdatedAt = time.Time{}
	return state, nil
}

func runReviewGet(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store reviewstore.Store) error {
		state, err := store.Get(ctx, args[0])
		if stderrors.Is(err, reviewstore.ErrNotFound) {
			return errors.ValidationError(errors.CodeInvalidValue, "doc_no", args[0], err).
				WithSuggestion("no review state is saved for this document")
		}
		if err != nil {
			return err
		}
		printStates(cmd, []models.ReviewState{state})
		return nil
	})
}

func runReviewList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store reviewstore.Store) error {
		states, err := store.List(ctx)
		if err != nil {
			return err
		}

		switch format := viper.GetString(config.KeyFormat); format {
		case "json":
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(states)
		case "", "console":
			if len(states) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No review state saved.")
				return nil
			}
			printStates(cmd, states)
			return nil
		default:
			return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyFormat, format, nil).
				WithSuggestion("review list supports console and json")
		}
	})
}

func runReviewDelete(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store reviewstore.Store) error {
		if err := store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted review state for %s\n", args[0])
		return nil
	})
}

func printStates(cmd *cobra.Command, states []models.ReviewState) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOC NO\tINVESTIGATION\tASSIGNED TO\tUPDATED")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.DocNo, s.Investigation, s.AssignedTo, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
