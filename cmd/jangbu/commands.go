package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/jangbu/internal/api"
	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/query"
	"github.com/jask/jangbu/internal/service"
	"github.com/jask/jangbu/internal/testdata"
)

// filterFlags collects the query intents shared by search and facets.
type filterFlags struct {
	columns []string
	raw     string
	include []string
	exclude []string
	keyword string
	from    string
	to      string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&ff.columns, "columns", "c", nil, "columns or labels to show (default all)")
	cmd.Flags().StringVarP(&ff.raw, "where", "w", "", "raw condition, labels allowed, optional ORDER BY")
	cmd.Flags().StringArrayVarP(&ff.include, "include", "i", nil, "column=v1,v2 to keep (repeatable)")
	cmd.Flags().StringArrayVarP(&ff.exclude, "exclude", "x", nil, "column=v1,v2 to drop (repeatable)")
	cmd.Flags().StringVarP(&ff.keyword, "keyword", "k", "", "text searched in semok and details")
	cmd.Flags().StringVar(&ff.from, "from", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&ff.to, "to", "", "end date YYYY-MM-DD")
}

func (ff *filterFlags) filter() (query.Filter, error) {
	inc, err := parseSets(ff.include)
	if err != nil {
		return query.Filter{}, err
	}
	exc, err := parseSets(ff.exclude)
	if err != nil {
		return query.Filter{}, err
	}
	return query.Filter{
		Columns:   ff.columns,
		Raw:       ff.raw,
		Include:   inc,
		Exclude:   exc,
		Keyword:   ff.keyword,
		StartDate: ff.from,
		EndDate:   ff.to,
	}, nil
}

// parseSets turns "gwan=a,b" entries into a column to values map.
func parseSets(entries []string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := map[string][]string{}
	for _, e := range entries {
		col, vals, ok := strings.Cut(e, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("filter %q: want column=value[,value]", e)
		}
		for _, v := range strings.Split(vals, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out[col] = append(out[col], v)
			}
		}
	}
	return out, nil
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Append spreadsheet rows to the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				res, err := a.svc.Ingest.Import(ctx, filepath.Base(path), f)
				_ = f.Close()
				if err != nil {
					return err
				}
				msg := fmt.Sprintf("%s: %d rows appended (batch %s)", path, res.Rows, res.BatchID)
				if res.PreviouslySeen {
					msg += warnStyle.Render("  same content was ingested before")
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		ff     filterFlags
		limit  int
		offset int
		xlsx   string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Query the ledger with filters and show totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var res service.SearchResult
			if limit > 0 {
				res, err = a.svc.Search.Page(ctx, f, limit, offset)
			} else {
				res, err = a.svc.Search.Search(ctx, f)
			}
			if err != nil {
				return explain(err)
			}
			if xlsx != "" {
				out, err := os.Create(xlsx)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := ingest.WriteXLSX(out, res.Result, &res.Totals); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", len(res.Records), xlsx)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(res.Columns, res.Records))
			fmt.Fprintln(cmd.OutOrStdout(), renderTotals(res.Totals))
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 = everything)")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the result to this workbook instead of printing")
	return cmd
}

func facetsCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "facets [COLUMN]",
		Short: "List cascading filter values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				vals, err := a.svc.Search.Facet(ctx, args[0], f)
				if err != nil {
					return explain(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFacets(map[string][]string{args[0]: vals}))
				return nil
			}
			all, err := a.svc.Search.Facets(ctx, f)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFacets(all))
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func dupesCmd() *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Show records that duplicate another record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if grouped {
				groups, err := a.svc.Reconciler.Groups(ctx)
				if err != nil {
					return err
				}
				for i, g := range groups {
					fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render(fmt.Sprintf("group %d", i+1)))
					fmt.Fprintln(cmd.OutOrStdout(), renderRecords(nil, g))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d groups\n", len(groups))
				return nil
			}
			recs, err := a.svc.Reconciler.Duplicates(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(nil, recs))
			fmt.Fprintf(cmd.OutOrStdout(), "%d duplicate records\n", len(recs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", false, "print one table per duplicate group")
	return cmd
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update ID COLUMN=VALUE...",
		Short: "Set columns on one record (labels accepted)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id %q: %w", args[0], err)
			}
			changes := map[string]any{}
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("%q: want COLUMN=VALUE", kv)
				}
				changes[k] = v
			}
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			changed, err := a.svc.Maintenance.UpdateRecord(ctx, id, changes)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "no record with id %d\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "record %d updated\n", id)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, s := range args {
				id, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return fmt.Errorf("id %q: %w", s, err)
				}
				ids = append(ids, id)
			}
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range ids {
				removed, err := a.svc.Maintenance.DeleteRecord(ctx, id)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "record %d deleted\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "no record with id %d\n", id)
				}
			}
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every ledger record (irreversible)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.svc.Maintenance.Reset(ctx, yes)
			if errors.Is(err, service.ErrNotConfirmed) {
				return fmt.Errorf("%w: rerun with --yes to delete every record", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records deleted\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting the whole ledger")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent ingest batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			batches, err := a.svc.Ingest.History(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBatches(batches))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of batches")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.SetupRouter(a.svc, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.log.Info().Str("addr", addr).Msg("listening")
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// explain adds the syntax hint to query failures.
func explain(err error) error {
	if errors.Is(err, query.ErrQuery) || errors.Is(err, query.ErrRawPredicate) {
		return fmt.Errorf("%w (check your predicate syntax)", err)
	}
	return err
}

func seedCmd() *cobra.Command {
	var (
		rows int
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append generated sample records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := testdata.Seed(ctx, a.db, a.svc.Search.Ledger, rows, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sample records appended\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 50, "number of records")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}
