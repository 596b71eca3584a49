// Command peoplectl runs maintenance jobs against the directory database:
// migrations, spreadsheet imports, name crosschecks, locality seeding and
// audit reverts.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/blogem/people-directory/config"
	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/logger"
	"github.com/blogem/people-directory/repositories"
	"github.com/blogem/people-directory/services"
)

const usage = `usage: peoplectl [--db path] [--driver sqlite3|sqlite] <command> [args]

commands:
  migrate                               apply pending migrations
  import [--preserve-since T] <file>    replace all records with a spreadsheet
  rebuild --preserve-since T <file>     import keeping recently worked rows
  append <file>                         add spreadsheet rows whose name is not stored yet
  crosscheck <file>                     compare spreadsheet names with stored records
  seed-localities                       fill an empty locality table from records
  revert --from T --to T                undo updates made inside a time window
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg := config.Load()
	slog.SetDefault(logger.New(cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "peoplectl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("peoplectl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	dbPath := global.String("db", cfg.DatabasePath, "database file")
	driver := global.String("driver", cfg.DBDriver, "sql driver: sqlite3 (cgo) or sqlite (pure Go)")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if global.NArg() == 0 {
		return errUsage
	}

	db, err := database.Connect(*driver, *dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srvs := services.NewServices(repositories.NewRepositories(db), slog.Default())
	cmd, rest := global.Arg(0), global.Args()[1:]

	switch cmd {
	case "migrate":
		return migrate(ctx, db, *dbPath, out)
	case "import", "rebuild":
		return importFile(ctx, srvs, cmd, rest, out)
	case "append":
		return appendFile(ctx, srvs, rest, out)
	case "crosscheck":
		return crosscheck(ctx, srvs, rest, out)
	case "seed-localities":
		n, err := srvs.Localities.SeedIfEmpty(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded %d localities\n", n)
		return nil
	case "revert":
		return revert(ctx, srvs, rest, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// migrate reports table sizes once Connect has applied pending migrations
func migrate(ctx context.Context, db *sql.DB, path string, out io.Writer) error {
	stat := database.Stat(ctx, db, path)
	fmt.Fprintf(out, "database %s is up to date (%d tables)\n", stat.Path, stat.TablesCount)
	return nil
}

// fileArg parses the flags of subcommand cmd, which takes exactly one file
func fileArg(cmd string, fs *pflag.FlagSet, args []string) (*os.File, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%w: %s needs one file", errUsage, cmd)
	}
	return os.Open(fs.Arg(0))
}

// importFile runs import and rebuild; rebuild insists on a preserve cutoff
func importFile(ctx context.Context, srvs *services.Services, cmd string, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	since := fs.String("preserve-since", "", "keep stored rows of lawyers whose call/visit fields changed since this time")
	f, err := fileArg(cmd, fs, args)
	if err != nil {
		return err
	}
	defer f.Close()

	if cmd == "rebuild" && *since == "" {
		return fmt.Errorf("%w: rebuild needs --preserve-since", errUsage)
	}

	result, err := srvs.Imports.Import(ctx, f.Name(), f, services.ImportOptions{PreserveSince: *since})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d rows from sheet %q (%d columns, %d preserved)\n",
		result.Count, result.Sheet, len(result.Columns), result.Preserved)
	return nil
}

func appendFile(ctx context.Context, srvs *services.Services, args []string, out io.Writer) error {
	f, err := fileArg("append", pflag.NewFlagSet("append", pflag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := srvs.Imports.AppendMissing(ctx, f.Name(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "appended %d rows\n", n)
	return nil
}

func crosscheck(ctx context.Context, srvs *services.Services, args []string, out io.Writer) error {
	f, err := fileArg("crosscheck", pflag.NewFlagSet("crosscheck", pflag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := srvs.Imports.Crosscheck(ctx, f.Name(), f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func revert(ctx context.Context, srvs *services.Services, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("revert", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	from := fs.String("from", "", "window start (date or timestamp)")
	to := fs.String("to", "", "window end (date or timestamp)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	n, err := srvs.Revert.Revert(ctx, *from, *to)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reverted %d updates\n", n)
	return nil
}
