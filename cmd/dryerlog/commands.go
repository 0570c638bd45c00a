package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/store"
	"github.com/JonMunkholm/dryerlog/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API and event websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			srv := web.NewServer(a.service, cfg)
			err := srv.Start(cmd.Context())

			// Let running imports finish before the backend closes.
			drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if st := a.service.Limiter().Status(); st.Active > 0 {
				fmt.Fprintf(os.Stderr, "waiting for %d imports\n", st.Active)
				if werr := a.service.Limiter().WaitForDrain(drainCtx); werr != nil {
					fmt.Fprintln(os.Stderr, "imports did not finish:", werr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default: SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: SERVER_PORT)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv FILE...",
		Short: "Merge CSV files into the stored records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				res, err := a.service.ImportCSV(cmd.Context(), importer.FileSource(path))
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d rows, %d added, %d skipped\n", res.File, res.Rows, res.Added, len(res.Skipped))
				for _, sk := range res.Skipped {
					fmt.Printf("  line %d: %s\n", sk.Line, sk.Reason)
				}
			}
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show how the columns of a CSV file map to record fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.service.PreviewCSV(cmd.Context(), importer.FileSource(args[0]), model)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Machine model (default: first row's model)")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE",
		Short: "Replace the stored records with a JSON snapshot (all_records.json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.service.LoadMaster(cmd.Context(), importer.FileSource(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d records\n", n)
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build-db CSV...",
		Short: "Build all_records.json from CSV files without touching the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]importer.Source, len(args))
			for i, path := range args {
				sources[i] = importer.FileSource(path)
			}
			art, err := a.service.BuildMaster(cmd.Context(), sources)
			if err != nil {
				return err
			}
			return a.report(art)
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge REFERENCE DELTA",
		Short: "Merge a delta file into a reference snapshot, writing a new all_records.json",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, res, err := a.service.MergeFiles(cmd.Context(), importer.FileSource(args[0]), importer.FileSource(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "reference %d, added %d, total %d\n", res.Reference, res.Added, res.Total)
			return a.report(art)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records",
	}

	var category, model string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export the records of one category and model as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.selectView(cmd, category, model); err != nil {
				return err
			}
			art, err := a.service.ExportModelCSV()
			if err != nil {
				return err
			}
			return a.report(art)
		},
	}
	csvCmd.Flags().StringVar(&category, "type", "", "Record type: evaluationTeam or conditionSetting")
	csvCmd.Flags().StringVar(&model, "model", "", "Machine model")

	var format, from string
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Export the cross-model report (CSV or XLSX)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := core.ParseReportFormat(format)
			if err != nil {
				return withCode(exitUsage, err)
			}
			var src importer.Source
			if from != "" {
				src = importer.FileSource(from)
			}
			art, err := a.service.ExportReport(cmd.Context(), src, f)
			if err != nil {
				return err
			}
			return a.report(art)
		},
	}
	reportCmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	reportCmd.Flags().StringVar(&from, "from", "", "Report on this JSON snapshot instead of the store")

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Export unsynced records as tablet-data-<date>.json and mark them synced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := a.service.ExportDaily()
			if err != nil {
				return err
			}
			if err := a.report(art); err != nil {
				return err
			}
			return a.service.MarkExported(cmd.Context(), art)
		},
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Export every stored record as all_records.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := a.service.ExportAll()
			if err != nil {
				return err
			}
			return a.report(art)
		},
	}

	cmd.AddCommand(csvCmd, reportCmd, dailyCmd, allCmd)
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		category, model, sortKey, dir string
		rto, heating                  string
		page                          int
		filter                        store.Filter
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print one page of records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := store.Query{View: a.store.View(), Filter: filter, Sort: store.DefaultSort, Page: page}
			if category != "" {
				q.View.Category = record.NormalizeCategory(category)
			}
			if model != "" {
				q.View.Model = model
			}
			if sortKey != "" {
				q.Sort = store.Sort{Key: sortKey, Direction: store.Direction(dir)}
			}
			var err error
			if q.Filter.RTOStatus, err = parseFlagArg("rto", rto); err != nil {
				return err
			}
			if q.Filter.HeatingStatus, err = parseFlagArg("heating", heating); err != nil {
				return err
			}

			p, err := a.store.Query(q)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return printJSON(p)
		},
	}

	f := cmd.Flags()
	f.StringVar(&category, "type", "", "Record type (default: evaluationTeam)")
	f.StringVar(&model, "model", "", "Machine model (default: catalog default)")
	f.IntVar(&page, "page", 1, "Page number")
	f.StringVar(&sortKey, "sort", "", "Sort field path (default: dateTime)")
	f.StringVar(&dir, "dir", string(store.Desc), "Sort direction: asc or desc")
	f.StringVar(&rto, "rto", "", "RTO status: yes or no")
	f.StringVar(&heating, "heating", "", "Heating status: yes or no")
	f.StringVar(&filter.Remark, "remark", "", "Remark substring")
	f.StringVar(&filter.StartDate, "from", "", "First date, YYYY-MM-DD")
	f.StringVar(&filter.EndDate, "to", "", "Last date, YYYY-MM-DD")
	f.StringVar(&filter.Field, "field", "", "Numeric field path for --min/--max")
	f.StringVar(&filter.Min, "min", "", "Minimum of --field")
	f.StringVar(&filter.Max, "max", "", "Maximum of --field")
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Attach or show raw time-series data of a record",
	}

	attach := &cobra.Command{
		Use:   "attach ID FILE",
		Short: "Attach a raw CSV (CH01..CH05, AVE) to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := a.service.AttachRawChart(cmd.Context(), args[0], importer.FileSource(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("attached %d rows, channels %v\n", len(chart.Rows), chart.Channels())
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print the raw chart of a record as plot series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plot, err := a.service.RawChartPlot(args[0])
			if err != nil {
				return err
			}
			return printJSON(plot)
		},
	}

	cmd.AddCommand(attach, show)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record and golden batch pointer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitUsage, fmt.Errorf("clear deletes %d records; pass --yes to confirm", a.store.Len()))
			}
			return a.store.ClearAll(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

// selectView switches the active view when --type or --model is given.
func (a *app) selectView(cmd *cobra.Command, category, model string) error {
	if category == "" && model == "" {
		return nil
	}
	v := a.store.View()
	if category != "" {
		v.Category = record.NormalizeCategory(category)
	}
	if model != "" {
		v.Model = model
	}
	if err := a.store.SetView(cmd.Context(), v); err != nil {
		return withCode(exitUsage, err)
	}
	return nil
}

// report saves art and prints where it went.
func (a *app) report(art *core.Artifact) error {
	path, err := a.save(art)
	if err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(os.Stderr, "wrote %s (%d records)\n", path, art.Count)
	}
	return nil
}

func parseFlagArg(name, v string) (record.Flag, error) {
	var f record.Flag
	if err := f.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
		return record.FlagUnset, withCode(exitUsage, fmt.Errorf("--%s: %w", name, err))
	}
	return f, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
