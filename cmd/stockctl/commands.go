package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/mamadbah2/jewelstock/internal/config"
	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
	"github.com/mamadbah2/jewelstock/internal/service/movements"
	"github.com/mamadbah2/jewelstock/internal/service/reporting"
	"github.com/mamadbah2/jewelstock/internal/service/session"
)

var envFile string

func init() {
	flag.StringVar(&envFile, "env", "", "Path of an env file to load before reading the environment.")
}

func commands(out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&summaryCmd{out: out},
		&logCmd{out: out},
		&reportCmd{out: out},
		&hashpwCmd{out: out, in: os.Stdin},
	}
}

func openData() (*config.Config, *csvfile.RecordStore, *csvfile.MovementLog, error) {
	cfg, err := config.Read(envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := csvfile.NewRecordStore(cfg.Inventory.DataDir, cfg.Inventory.Bases, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := csvfile.NewMovementLog(filepath.Join(cfg.Inventory.DataDir, "log.csv"), nil, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, store, log, nil
}

type summaryCmd struct {
	out io.Writer
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print item counts and price totals per base" }
func (*summaryCmd) Usage() string {
	return `stockctl summary

  Prints one line per base and bucket with the item count and the list and
  wholesale totals, followed by the grand total.
`
}
func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, store, _, err := openData()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	svc := reporting.NewService(store, nil, models.DefaultCatalog(), cfg.Location(), nil)
	perBase, total, err := svc.SummarizeBases(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "拠点\t区分\t点数\t上代\t下代\t")
	for _, base := range perBase {
		for _, bucket := range base.Summary.Buckets {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t\n", base.Base, reporting.BucketLabel(bucket.Name),
				bucket.Count, bucket.ListDisplay, bucket.WholesaleDisplay)
		}
	}
	fmt.Fprintf(w, "合計\t\t%d\t%s\t%s\t\n", total.Total.Count, total.Total.ListDisplay, total.Total.WholesaleDisplay)
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type logCmd struct {
	out     io.Writer
	op      string
	base    string
	from    string
	to      string
	keyword string
	csv     bool
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "print the movement log" }
func (*logCmd) Usage() string {
	return `stockctl log [-op 入庫|出庫] [-base <base>] [-from <date>] [-to <date>] [-q <keyword>] [-csv]

  Prints movement log entries matching the filters. With -csv the whole log
  is written as CSV, filters are ignored.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.op, "op", "", "Only entries of this operation (入庫 or 出庫).")
	f.StringVar(&c.base, "base", "", "Only entries of this base.")
	f.StringVar(&c.from, "from", "", "First date, inclusive (YYYY-MM-DD or YYYY/MM/DD).")
	f.StringVar(&c.to, "to", "", "Last date, inclusive.")
	f.StringVar(&c.keyword, "q", "", "Keyword matched against code, stone, note and user.")
	f.BoolVar(&c.csv, "csv", false, "Write the full log as CSV.")
}

func (c *logCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, _, log, err := openData()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	svc := movements.NewService(log, nil)
	if c.csv {
		if err := svc.Export(ctx, c.out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	op := models.Operation(c.op)
	if op != "" && !op.Valid() {
		fmt.Fprintf(os.Stderr, "unknown operation %q\n", c.op)
		return subcommands.ExitUsageError
	}

	entries, err := svc.List(ctx, movements.Filter{Operation: op, Base: c.base, From: c.from, To: c.to, Keyword: c.keyword})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "区分\t拠点\t品番\tアイテム\t上代\t入庫日\t出庫日\tメモ")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Operation, e.Base, e.Record.Code, e.Record.Item,
			e.Record.ListPrice, e.Record.ReceivedOn, e.RemovedOn, e.Memo)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type reportCmd struct {
	out io.Writer
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print today's inventory report without storing it" }
func (*reportCmd) Usage() string {
	return `stockctl report

  Renders the daily report text for the current inventory.
`
}
func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, store, _, err := openData()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	svc := reporting.NewService(store, nil, models.DefaultCatalog(), cfg.Location(), nil)
	text, err := svc.GenerateDailyReport(ctx, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(c.out, text)
	return subcommands.ExitSuccess
}

type hashpwCmd struct {
	out io.Writer
	in  io.Reader
}

func (*hashpwCmd) Name() string     { return "hashpw" }
func (*hashpwCmd) Synopsis() string { return "hash a password for APP_PASSWORD_HASH" }
func (*hashpwCmd) Usage() string {
	return `stockctl hashpw [<password>]

  Prints the bcrypt hash of the password given as argument, or read from the
  first line of standard input.
`
}
func (*hashpwCmd) SetFlags(*flag.FlagSet) {}

func (c *hashpwCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password := f.Arg(0)
	if password == "" {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err != nil && err != io.EOF {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := session.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	fmt.Fprintln(c.out, hash)
	return subcommands.ExitSuccess
}
