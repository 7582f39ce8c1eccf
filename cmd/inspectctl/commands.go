package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/database"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/services/inspection"
	"github.com/medirank/medirank-api/internal/services/printer"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the store connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd.Context(), func(s *database.Stores) error {
				if err := s.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("%s ping: %w", s.Driver, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s successfully\n", s.Driver)
				return nil
			})
		},
	}
}

func newLatestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the newest inspection as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd.Context(), func(s *database.Stores) error {
				items, err := s.Inspections.List(cmd.Context(), 1)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No inspection documents found")
					return nil
				}
				raw, err := json.MarshalIndent(items[0], "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Latest inspection:")
				fmt.Fprintln(out, string(raw))
				return nil
			})
		},
	}
}

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print inspection counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd.Context(), func(s *database.Stores) error {
				svc := inspection.NewService(s.Inspections, blobstore.Disabled(), a.log, nil)
				counts, err := svc.Summarize(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-12s %6d\n", "total", counts.Total)
				fmt.Fprintf(out, "%-12s %6d\n", "draft", counts.Draft)
				fmt.Fprintf(out, "%-12s %6d\n", "completed", counts.Completed)
				fmt.Fprintf(out, "%-12s %6d\n", "reviewed", counts.Reviewed)
				fmt.Fprintf(out, "%-12s %6d\n", "unknown", counts.Unknown)

				others := make([]string, 0, len(counts.Raw))
				for status := range counts.Raw {
					switch status {
					case models.StatusDraft, models.StatusCompleted, models.StatusReviewed, models.StatusUnknown:
						continue
					}
					others = append(others, status)
				}
				sort.Strings(others)
				for _, status := range others {
					fmt.Fprintf(out, "%-12s %6d\n", status, counts.Raw[status])
				}
				return nil
			})
		},
	}
}

func newReportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Render an inspection as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if output == "" {
				output = fmt.Sprintf("inspection_%s.pdf", id)
			}
			return a.withStores(cmd.Context(), func(s *database.Stores) error {
				in, err := s.Inspections.FindByID(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("inspection %s: %w", id, err)
				}
				pdf, err := printer.GenerateInspectionPDF(in, printer.ReportOptions{})
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, pdf, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(pdf))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default inspection_<id>.pdf)")
	return cmd
}
