/*Command-line declaration calculator*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dgraph-io/badger/v3"

	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/config"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/api"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/db"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/ledger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
)

// Globals holds options shared by every command
type Globals struct {
	LogLevel string `name:"log-level" default:"WARN" help:"Log level written to stderr [DEBUG INFO WARN ERROR]."`

	out     io.Writer
	cleanup []func()
}

// cli commands / args available
var cli struct {
	Globals `embed:""`

	File  fileCmd  `cmd:"" help:"Calculate the declaration from an .xlsx ledger."`
	Sheet sheetCmd `cmd:"" help:"Calculate the declaration from a shared Google spreadsheet."`
	Rate  rateCmd  `cmd:"" help:"Show the GEL rate of a currency on a date."`
}

type fileCmd struct {
	Path  string `arg:"" type:"existingfile" help:"Ledger workbook."`
	Prior string `default:"0" help:"Field 15 of the previous period's declaration."`
}

type sheetCmd struct {
	Link  string `arg:"" help:"Link to a spreadsheet shared with the service account."`
	Prior string `default:"0" help:"Field 15 of the previous period's declaration."`
}

type rateCmd struct {
	Currency string `arg:"" help:"Currency code, e.g. USD."`
	Date     string `arg:"" help:"Date as DD.MM.YYYY."`
}

func (c *fileCmd) Run(g *Globals) error {
	svc, err := g.service(false)
	if err != nil {
		return err
	}
	prior, err := service.ParsePriorAmount(c.Prior)
	if err != nil {
		return err
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	run, err := svc.ProcessFile(newContext(), f, prior)
	if err != nil {
		return err
	}
	return printReport(g.out, run.Report())
}

func (c *sheetCmd) Run(g *Globals) error {
	svc, err := g.service(true)
	if err != nil {
		return err
	}
	prior, err := service.ParsePriorAmount(c.Prior)
	if err != nil {
		return err
	}

	run, err := svc.ProcessSheet(newContext(), c.Link, prior)
	if err != nil {
		return err
	}
	return printReport(g.out, run.Report())
}

func (c *rateCmd) Run(g *Globals) error {
	currency, err := entity.ParseCurrency(strings.ToUpper(c.Currency))
	if err != nil {
		return err
	}
	date, err := service.ParseDate(c.Date)
	if err != nil {
		return err
	}

	svc, err := g.service(false)
	if err != nil {
		return err
	}
	rate, err := svc.Rate(newContext(), currency, date)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(g.out, "1 %s = %s GEL (published %s)\n", currency, rate.Rate, rate.Date)
	return err
}

// service wires the pipeline the same way the HTTP server does
func (g *Globals) service(withSheets bool) (*service.DeclarationService, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewJSONLogger(os.Stderr, logger.ParseLevel(g.LogLevel))
	logger.SetDefaultLogger(log)

	var source ports.RateSource = api.NewNBGClient(api.NBGClientConfig{
		BaseURL:    cfg.RateSourceURL,
		Timeout:    cfg.RateHTTPTimeout,
		MaxRetries: cfg.RateMaxRetries,
	}, nil, log)

	if cfg.RateArchivePath != "" {
		opts := badger.DefaultOptions(cfg.RateArchivePath)
		opts.Logger = nil
		badgerDB, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open rate archive: %w", err)
		}
		g.cleanup = append(g.cleanup, func() { badgerDB.Close() })
		source = db.NewArchivedRateSource(source, db.NewBadgerRateArchive(badgerDB), log)
	}

	svcCfg := service.DeclarationServiceConfig{
		LookbackDays: cfg.RateLookbackDays,
		FileReader:   ledger.NewXLSXReader(log),
	}
	if withSheets {
		opts, err := ledger.CredentialOptions(cfg.GoogleServiceAccountJSON, cfg.GoogleKeyPath)
		if err != nil {
			return nil, err
		}
		reader, err := ledger.NewSheetsReader(context.Background(), log, opts...)
		if err != nil {
			return nil, err
		}
		svcCfg.SheetReader = reader
	}

	return service.NewDeclarationService(source, svcCfg, log), nil
}

func newContext() context.Context {
	return middleware.WithRequestID(context.Background(), middleware.NewRequestID())
}

func printReport(w io.Writer, report *entity.DeclarationReport) error {
	for _, t := range report.CategoryTotals.Ordered() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", t.Category, t.Amount.StringFixed(2)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, f := range report.Fields() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.Name, f.Value.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("declare"),
		kong.Description("Monthly small-business income declaration calculator for Georgia."),
		kong.UsageOnError(),
	)
	cli.Globals.out = os.Stdout
	err := ctx.Run(&cli.Globals)
	for _, fn := range cli.Globals.cleanup {
		fn()
	}
	ctx.FatalIfErrorf(err)
}
