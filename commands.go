package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nconklindev/labsheets/internal/extract"
	"github.com/nconklindev/labsheets/internal/lab"
	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
	"github.com/nconklindev/labsheets/internal/types"
	"github.com/nconklindev/labsheets/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	var regions []string
	var format string
	var out string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Read layout regions from a workbook",
		Long: `Read layout regions from a workbook and print them.

Without --region every region whose sheets exist in the workbook is read.

Example: labsheets parse run.xlsx --region pcr_info --region pcr_samples --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := a.regions(args[0], regions)
			if err != nil {
				return err
			}
			summary, err := extract.ParseRegions(args[0], selected, nil, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("parsed", "file", args[0], "regions", len(summary.Regions), "rows", summary.RowsParsed)

			w := cmd.OutOrStdout()
			if out != "" {
				if out == "-" {
					out = a.cfg.OutputPath(args[0], "."+format)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := render(w, format, summary); err != nil {
				return err
			}
			if failed := summary.Failed(); len(failed) > 0 && a.strict {
				return fmt.Errorf("%d region(s) could not be read", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", nil, "Region to read (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", `Write output to a file ("-" derives the name from the input)`)

	return cmd
}

func newSubmissionCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "submission <file>",
		Short: "Import a client sample submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im := lab.NewImporter(a.layout, a.cfg.Layout.SubmissionTypes, a.logger)
			sub, convErr := im.ImportSubmission(args[0])
			if sub == nil {
				return convErr
			}
			if err := a.conversionErrors(convErr); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Submission %s (%s)\n", sub.ImportID, orDash(sub.Type))
			printInfo(w, sub.Info)
			rows := make([][]string, len(sub.Samples))
			for i, s := range sub.Samples {
				rows[i] = []string{strconv.Itoa(s.Rank), s.SampleID, s.SampleType, s.Well()}
			}
			fmt.Fprintln(w, renderTable([]string{"rank", "sample_id", "sample_type", "well"}, rows))

			if out != "" {
				return lab.NewExporter(a.layout, a.logger).ExportSubmission(out, sub)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the submission into this workbook")
	return cmd
}

func newProcedureCmd(a *app) *cobra.Command {
	var procType string
	var out string

	cmd := &cobra.Command{
		Use:   "procedure <file>",
		Short: "Import a procedure sheet and optionally fill its quality sheet",
		Long: `Import the reagents, equipment and samples of one procedure sheet.

With --out the procedure is written to the "<type> Quality" sheet of that workbook.

Example: labsheets procedure run.xlsx --type Extraction --out run.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im := lab.NewImporter(a.layout, a.cfg.Layout.SubmissionTypes, a.logger)
			proc, convErr := im.ImportProcedure(args[0], procType)
			if proc == nil {
				return convErr
			}
			if err := a.conversionErrors(convErr); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Procedure %s (%s)\n", proc.ImportID, proc.Type)
			printInfo(w, proc.Info)

			reagents := make([][]string, len(proc.Reagents))
			for i, r := range proc.Reagents {
				expiry := "NA"
				if !r.NoExpiry {
					expiry = r.Expiry.Format("2006-01-02")
				}
				reagents[i] = []string{r.Role, r.Name, r.Lot, expiry}
			}
			fmt.Fprintln(w, renderTable([]string{"role", "name", "lot", "expiry"}, reagents))

			equipment := make([][]string, len(proc.Equipment))
			for i, e := range proc.Equipment {
				equipment[i] = []string{e.Role, e.Name, e.AssetNumber, strings.Join(e.Tips, "; ")}
			}
			fmt.Fprintln(w, renderTable([]string{"role", "name", "asset_number", "tips"}, equipment))
			fmt.Fprintf(w, "%d sample(s)\n", len(proc.Samples))

			if out != "" {
				return lab.NewExporter(a.layout, a.logger).ExportProcedure(out, proc)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&procType, "type", "t", "", "Procedure type, also the sheet name")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the quality sheet into this workbook")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newPCRCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pcr <file>",
		Short: "Import instrument PCR results",
		Long: `Import a PCR results export, grouping rows by sample and target.

With --out and --procedure the results are written to the "<procedure> Results" sheet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im := lab.NewImporter(a.layout, a.cfg.Layout.SubmissionTypes, a.logger)
			imp, convErr := im.ImportPCR(args[0])
			if imp == nil {
				return convErr
			}
			if err := a.conversionErrors(convErr); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printInfo(w, imp.Info)
			var rows [][]string
			for _, r := range imp.Results {
				for _, t := range r.Targets {
					ct := "Undetermined"
					if v, ok := r.Ct(t.Name); ok {
						ct = strconv.FormatFloat(v, 'f', 2, 64)
					}
					rows = append(rows, []string{r.SampleID, t.Name, ct})
				}
			}
			fmt.Fprintln(w, renderTable([]string{"sample", "target", "ct"}, rows))

			if out != "" {
				if a.procedure == "" {
					return errors.New("--out needs --procedure to name the results sheet")
				}
				return lab.NewExporter(a.layout, a.logger).ExportPCR(out, a.procedure, imp)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write results into this workbook")
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Copy regions from one workbook into another",
		Long: `Read regions from src and write them to the same regions of dst.

dst is created when missing; sheets outside the copied regions are left as they are.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := a.regions(args[0], regions)
			if err != nil {
				return err
			}
			summary, err := extract.CopyRegions(args[0], args[1], selected, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("copied", "src", args[0], "dst", summary.OutputFile, "rows", summary.RowsParsed)
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d region(s), %d row(s) to %s\n", len(summary.Regions), summary.RowsParsed, summary.OutputFile)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", nil, "Region to copy (repeatable)")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var sheet string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "List sheets or preview one with its guessed header row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if sheet == "" {
				return sheetrange.ReadFile(args[0], func(wb *sheetrange.Workbook) error {
					for _, s := range wb.SheetNames() {
						fmt.Fprintln(w, s)
					}
					if cats := wb.Categories(); len(cats) > 0 {
						fmt.Fprintf(w, "\ncategories: %s\n", strings.Join(cats, "; "))
					}
					return nil
				})
			}
			data, err := extract.ReadSheetData(args[0], sheet)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: header at row %d\n", data.Sheet, data.HeaderRow+1)
			rows := data.Rows
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}
			fmt.Fprintln(w, renderTable(data.Headers, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to preview")
	cmd.Flags().IntVarP(&limit, "limit", "n", extract.RowDetectionLimit, "Rows to show (0 for all)")
	return cmd
}

func newRegionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions of the active layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, len(a.layout.Regions))
			for i, r := range a.layout.Regions {
				ranges := make([]string, len(r.Ranges))
				for j, rng := range r.Ranges {
					ranges[j] = rng.String()
				}
				rows[i] = []string{r.Name, string(r.Kind), strings.Join(ranges, ", ")}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"region", "kind", "ranges"}, rows))
			return nil
		},
	}
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse workbook regions in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := ui.InitialModel(ui.Options{
				Layout: a.layout,
				Logger: a.logger,
				OutputPath: func(input string) string {
					return a.cfg.OutputPath(input, ".json")
				},
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
			_, err := p.Run()
			return err
		},
	}
}

// regions resolves region names, or picks every region whose sheets exist in path
// when none are named.
func (a *app) regions(path string, names []string) ([]layout.Region, error) {
	if len(names) > 0 {
		return a.layout.Select(names...)
	}
	var sheets []string
	err := sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		sheets = wb.SheetNames()
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []layout.Region
	for _, r := range a.layout.Regions {
		ok := len(r.Ranges) > 0
		for _, rng := range r.Ranges {
			ok = ok && slices.Contains(sheets, rng.Sheet)
		}
		if ok {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no layout region matches the sheets of %s", filepath.Base(path))
	}
	return out, nil
}

// conversionErrors logs rows that could not be converted, or returns them in strict
// mode.
func (a *app) conversionErrors(err error) error {
	if err == nil {
		return nil
	}
	if a.strict {
		return err
	}
	for _, e := range rowErrors(err) {
		var convErr *lab.ConversionError
		if errors.As(e, &convErr) {
			a.logger.Warn("row skipped", "region", convErr.Region, "row", convErr.Row, "field", convErr.Field, "err", convErr.Err)
			continue
		}
		a.logger.Warn("row skipped", "err", e)
	}
	return nil
}

// rowErrors flattens joined and wrapped errors down to the per-row failures they
// carry. An error with no row failure inside is returned as is.
func rowErrors(err error) []error {
	switch e := err.(type) {
	case nil:
		return nil
	case *lab.ConversionError:
		return []error{e}
	case interface{ Unwrap() []error }:
		var out []error
		for _, inner := range e.Unwrap() {
			out = append(out, rowErrors(inner)...)
		}
		return out
	}
	if inner := errors.Unwrap(err); inner != nil {
		found := rowErrors(inner)
		if slices.ContainsFunc(found, isConversionError) {
			return found
		}
	}
	return []error{err}
}

func isConversionError(err error) bool {
	_, ok := err.(*lab.ConversionError)
	return ok
}

func render(w io.Writer, format string, summary *types.ParseSummary) error {
	switch format {
	case "json":
		return extract.WriteJSON(w, summary)
	case "csv":
		for i, r := range summary.Regions {
			if r.Err != nil {
				continue
			}
			if i > 0 {
				fmt.Fprintf(w, "\n# %s\n", r.Name)
			} else {
				fmt.Fprintf(w, "# %s\n", r.Name)
			}
			if err := extract.WriteCSV(w, r.Result); err != nil {
				return err
			}
		}
		return nil
	case "table":
		for _, r := range summary.Regions {
			fmt.Fprintln(w, ui.TitleStyle.Render(r.Name))
			if r.Err != nil {
				fmt.Fprintln(w, ui.ErrorStyle.Render("✗ "+r.Err.Error()))
				continue
			}
			header, rows := extract.Grid(r.Result)
			fmt.Fprintln(w, renderTable(header, rows))
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func renderTable(header []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return ui.HeaderStyle
			}
			return ui.CellStyle
		}).
		Headers(header...).
		Rows(rows...).
		String()
}

func printInfo(w io.Writer, info lab.Info) {
	rows := make([][]string, len(info.Fields))
	for i, f := range info.Fields {
		rows[i] = []string{f.Key, f.Value.String()}
	}
	fmt.Fprintln(w, renderTable([]string{"field", "value"}, rows))
	if missing := info.MissingKeys(); len(missing) > 0 {
		fmt.Fprintln(w, ui.HelpStyle.Render("missing: "+strings.Join(missing, ", ")))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
