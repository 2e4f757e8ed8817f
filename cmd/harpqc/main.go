package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/api"
	"github.com/halvard/harpqc/internal/dataset"
	"github.com/halvard/harpqc/internal/metrics"
	"github.com/halvard/harpqc/internal/models"
	"github.com/halvard/harpqc/internal/narrative"
	"github.com/halvard/harpqc/internal/report"
	"github.com/halvard/harpqc/internal/store"
)

type cli struct {
	Fetch    fetchCmd    `cmd:"" help:"Download a SHARP keyword table over HTTP or FTP."`
	Report   reportCmd   `cmd:"" help:"Analyze a keyword table and write the report directory."`
	Runs     runsCmd     `cmd:"" help:"Print class run spans, or coverage runs, as CSV."`
	Impute   imputeCmd   `cmd:"" help:"Write the annotated record table with longitudes filled in."`
	Coverage coverageCmd `cmd:"" help:"Print the cadence coverage grid and its usable ranges."`
	Export   exportCmd   `cmd:"" help:"Analyze a keyword table and store the run in SQLite."`
	History  historyCmd  `cmd:"" help:"List stored runs, or show one run in detail."`
	Serve    serveCmd    `cmd:"" help:"Analyze a keyword table and serve the report over HTTP."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("harpqc"),
		kong.Description("Exploratory data quality analysis for SHARP active-region keyword tables."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		log.Fatalf("harpqc: %v", err)
	}
}

// InputFlags are shared by every command that reads a keyword table.
type InputFlags struct {
	Input   string        `required:"" help:"Path to the SHARP keyword CSV table." type:"existingfile"`
	Cadence time.Duration `help:"Expected sampling cadence." default:"12m"`
}

func (f InputFlags) load() ([]models.Record, error) {
	records, err := dataset.LoadCSV(f.Input)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Input, err)
	}
	log.Printf("main: loaded %d records from %s", len(records), f.Input)
	return records, nil
}

func (f InputFlags) analyze(opts analysis.Options) (*analysis.Result, error) {
	records, err := f.load()
	if err != nil {
		return nil, err
	}
	opts.Cadence = f.Cadence
	return analysis.Analyze(records, opts)
}

type fetchCmd struct {
	URL string `required:"" help:"HTTP, HTTPS or FTP url of the keyword table."`
	Out string `help:"Destination file." default:"sharp.csv"`
}

func (c *fetchCmd) Run() error {
	n, err := dataset.Fetch(c.URL, c.Out)
	if err != nil {
		return err
	}
	log.Printf("main: fetched %d bytes to %s", n, c.Out)
	return nil
}

type reportCmd struct {
	InputFlags
	Out          string  `help:"Report output directory." default:"report"`
	DB           string  `help:"Also store the run in this SQLite database."`
	MetricsFile  string  `name:"metrics-file" help:"Write Prometheus metrics to this textfile."`
	Narrative    bool    `help:"Open the report with model-written prose (needs OPENAI_API_KEY)."`
	LonThreshold float64 `name:"lon-threshold" help:"Extreme longitude threshold in degrees." default:"68"`
	TopEntities  int     `name:"top-entities" help:"Cap the regions table at the N regions with the most records."`
}

func (c *reportCmd) Run() error {
	res, err := c.analyze(analysis.Options{ExtremeLon: c.LonThreshold})
	if err != nil {
		return err
	}

	summary := narrative.Fallback(res)
	if c.Narrative {
		if text, err := describe(res); err != nil {
			log.Printf("main: narrative unavailable, using fallback: %v", err)
		} else {
			summary = text
		}
	}

	opts := report.Options{
		Dir:         c.Out,
		Source:      filepath.Base(c.Input),
		Summary:     summary,
		TopEntities: c.TopEntities,
	}
	if err := report.NewWriter().Write(res, opts); err != nil {
		return err
	}

	if c.DB != "" {
		runID, err := saveRun(c.DB, res, filepath.Base(c.Input))
		if err != nil {
			return err
		}
		log.Printf("main: stored run %s in %s", runID, c.DB)
	}

	if c.MetricsFile != "" {
		if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}

func describe(res *analysis.Result) (string, error) {
	s, err := narrative.NewSummarizer()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return s.Describe(ctx, res)
}

type runsCmd struct {
	InputFlags
	Harp     int  `help:"Only this HARP number." default:"-1"`
	Coverage bool `help:"Print dataset coverage runs instead of class spans."`
}

func (c *runsCmd) Run() error {
	res, err := c.analyze(analysis.Options{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(os.Stdout)
	if c.Coverage {
		cw.Write([]string{"observed", "start_slot", "end_slot", "points", "started_at", "ended_at"})
		grid := res.Coverage.Grid
		for _, run := range res.Coverage.Runs {
			cw.Write([]string{
				strconv.FormatBool(run.Observed),
				strconv.Itoa(run.Start),
				strconv.Itoa(run.End),
				strconv.Itoa(run.Points),
				grid[run.Start].Time.UTC().Format(time.RFC3339),
				grid[run.End].Time.UTC().Format(time.RFC3339),
			})
		}
	} else {
		cw.Write([]string{"harpnum", "class", "start_index", "end_index", "record_count", "started_at", "ended_at", "elapsed_ms"})
		for _, ent := range res.Entities {
			if c.Harp >= 0 && ent.HARPNum != c.Harp {
				continue
			}
			for _, span := range ent.Spans {
				cw.Write([]string{
					strconv.Itoa(ent.HARPNum),
					span.Class.String(),
					strconv.Itoa(span.Start),
					strconv.Itoa(span.End),
					strconv.Itoa(span.Count),
					span.StartAt.UTC().Format(time.RFC3339),
					span.EndAt.UTC().Format(time.RFC3339),
					strconv.FormatInt(span.Elapsed.Milliseconds(), 10),
				})
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type imputeCmd struct {
	InputFlags
	Out          string  `help:"Destination CSV file, or - for stdout." default:"-"`
	LonThreshold float64 `name:"lon-threshold" help:"Extreme longitude threshold in degrees." default:"68"`
}

func (c *imputeCmd) Run() error {
	res, err := c.analyze(analysis.Options{ExtremeLon: c.LonThreshold})
	if err != nil {
		return err
	}

	if c.Out == "-" || c.Out == "" {
		return report.WriteRecords(os.Stdout, res)
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	if err := report.WriteRecords(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("main: wrote annotated table to %s", c.Out)
	return nil
}

type coverageCmd struct {
	InputFlags
}

func (c *coverageCmd) Run() error {
	records, err := c.load()
	if err != nil {
		return err
	}

	times := make([]time.Time, 0, len(records))
	for _, r := range records {
		times = append(times, r.ObservedAt)
	}
	cov, err := analysis.CoverageGrid(times, c.Cadence)
	if err != nil {
		return err
	}

	if len(cov.Grid) == 0 {
		fmt.Println("no records, nothing to cover")
		return nil
	}

	grid := cov.Grid
	fmt.Printf("Coverage: %d/%d slots observed (%.1f%%), %d off-grid timestamps\n",
		cov.Observed, len(grid), cov.Fraction()*100, cov.OffGrid)
	fmt.Printf("Grid: %s to %s at %s cadence\n",
		grid[0].Time.UTC().Format("2006-01-02 15:04"),
		grid[len(grid)-1].Time.UTC().Format("2006-01-02 15:04"),
		cov.Period)

	fmt.Println("Usable ranges:")
	for _, run := range cov.Runs {
		if !run.Observed {
			continue
		}
		printRun(grid, run)
	}

	gaps := 0
	for _, run := range cov.Runs {
		if !run.Observed {
			gaps++
		}
	}
	if gaps > 0 {
		fmt.Println("Gaps:")
		for _, run := range cov.Runs {
			if run.Observed {
				continue
			}
			printRun(grid, run)
		}
	}

	return nil
}

func printRun(grid []analysis.GridPoint, run analysis.CoverageRun) {
	fmt.Printf("  %s to %s (%d slots)\n",
		grid[run.Start].Time.UTC().Format("2006-01-02 15:04"),
		grid[run.End].Time.UTC().Format("2006-01-02 15:04"),
		run.Points)
}

type exportCmd struct {
	InputFlags
	DB           string  `required:"" help:"SQLite database path."`
	LonThreshold float64 `name:"lon-threshold" help:"Extreme longitude threshold in degrees." default:"68"`
}

func (c *exportCmd) Run() error {
	res, err := c.analyze(analysis.Options{ExtremeLon: c.LonThreshold})
	if err != nil {
		return err
	}

	runID, err := saveRun(c.DB, res, filepath.Base(c.Input))
	if err != nil {
		return err
	}
	log.Printf("main: stored run %s in %s", runID, c.DB)
	return nil
}

type historyCmd struct {
	DB      string `required:"" help:"SQLite database path." type:"existingfile"`
	ID      string `name:"run" help:"Show this run in detail."`
	Harp    int    `help:"With --run, also print class spans for this HARP number." default:"-1"`
	Records bool   `help:"With --run and --harp, dump the stored per-record rows as CSV."`
	Limit   int    `help:"How many runs to list." default:"20"`
}

func (c *historyCmd) Run() error {
	db, err := openDB(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	if c.Records {
		if c.ID == "" || c.Harp < 0 {
			return fmt.Errorf("--records needs --run and --harp")
		}
		records, err := st.ListAnalyzedRecords(c.ID, c.Harp)
		if err != nil {
			return err
		}
		return report.WriteAnalyzedRecords(os.Stdout, records)
	}
	if c.ID != "" {
		return showRun(st, c.ID, c.Harp)
	}

	runs, err := st.ListRuns(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s  records=%d regions=%d complete=%.1f%% coverage=%.1f%%\n",
			r.RunID,
			r.StartedAt.UTC().Format("2006-01-02 15:04"),
			r.Source,
			r.RecordsLoaded,
			r.Entities,
			classPct(r.Complete, r.Complete+r.Incomplete+r.Missing),
			r.CoverageFraction*100)
	}
	return nil
}

func showRun(st *store.Store, runID string, harp int) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	total := run.Complete + run.Incomplete + run.Missing
	fmt.Printf("Run %s  source=%s  started=%s  elapsed=%s\n",
		run.RunID, run.Source, run.StartedAt.UTC().Format("2006-01-02 15:04"), run.Elapsed)
	fmt.Printf("records=%d regions=%d complete=%.1f%% incomplete=%.1f%% missing=%.1f%%\n",
		run.RecordsLoaded, run.Entities,
		classPct(run.Complete, total), classPct(run.Incomplete, total), classPct(run.Missing, total))
	fmt.Printf("imputed lon_min=%d lon_max=%d  extreme west=%d east=%d  coverage=%.1f%%\n",
		run.ImputedMin, run.ImputedMax, run.ExtremeLow, run.ExtremeHigh, run.CoverageFraction*100)

	summaries, err := st.ListEntitySummaries(runID)
	if err != nil {
		return err
	}
	fmt.Println("Regions:")
	for _, s := range summaries {
		fmt.Printf("  HARP %d: %d records, %s to %s, complete %.1f%%, longest gap %d\n",
			s.HARPNum, s.Records,
			s.FirstObserved.UTC().Format("2006-01-02 15:04"),
			s.LastObserved.UTC().Format("2006-01-02 15:04"),
			classPct(s.Complete, s.Records), s.LongestGap)
	}

	if harp >= 0 {
		spans, err := st.ListSpans(runID, harp)
		if err != nil {
			return err
		}
		fmt.Printf("Spans for HARP %d:\n", harp)
		for _, sp := range spans {
			fmt.Printf("  %-10s %s to %s (%d records)\n",
				sp.Class,
				sp.StartAt.UTC().Format("2006-01-02 15:04"),
				sp.EndAt.UTC().Format("2006-01-02 15:04"),
				sp.Count)
		}
	}

	issues, err := st.ListIssues(runID)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		fmt.Println("Issues:")
		for _, iss := range issues {
			fmt.Printf("  HARP %d [%s]: %s\n", iss.HARPNum, iss.Stage, iss.Detail)
		}
	}

	return nil
}

type serveCmd struct {
	InputFlags
	Addr         string  `help:"Listen address." default:":8080"`
	Narrative    bool    `help:"Open the report with model-written prose (needs OPENAI_API_KEY)."`
	LonThreshold float64 `name:"lon-threshold" help:"Extreme longitude threshold in degrees." default:"68"`
	TopEntities  int     `name:"top-entities" help:"Cap the regions table at the N regions with the most records."`
}

func (c *serveCmd) Run() error {
	res, err := c.analyze(analysis.Options{ExtremeLon: c.LonThreshold})
	if err != nil {
		return err
	}

	summary := narrative.Fallback(res)
	if c.Narrative {
		if text, err := describe(res); err != nil {
			log.Printf("main: narrative unavailable, using fallback: %v", err)
		} else {
			summary = text
		}
	}

	srv := api.NewServer(res, c.Addr, report.Options{
		Source:      filepath.Base(c.Input),
		Summary:     summary,
		TopEntities: c.TopEntities,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("main: serving report on %s", c.Addr)
	return srv.Run(ctx)
}

func classPct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func saveRun(dbPath string, res *analysis.Result, source string) (string, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	return st.SaveRun(res, source)
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	return db, nil
}
