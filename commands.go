package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mizuchilabs/vegaorm/pkg/config"
	"github.com/mizuchilabs/vegaorm/pkg/diff"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/logging"
	"github.com/mizuchilabs/vegaorm/pkg/orm"
)

// commands builds a fresh command tree, flags keep their parsed state
func commands() []*cli.Command {
	return []*cli.Command{inspectCommand(), diffCommand(), syncCommand(), dropCommand()}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "dialect",
			Usage: "Database dialect: sqlite, postgres or mysql",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Server host, or the database file for sqlite",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Server port (default depends on the dialect)",
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"db"},
			Usage:   "Database name",
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "Database user",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Database password",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
	}
}

func modelsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "models",
		Aliases: []string{"m"},
		Value:   "models",
		Usage:   "Path to directory containing .json model files",
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "List tables, or show the columns of one table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "Table to inspect",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDatabase(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			table := cmd.String("table")
			if table == "" {
				tables, err := db.ListTables(ctx)
				if err != nil {
					return err
				}
				if len(tables) == 0 {
					fmt.Println("No tables found.")
					return nil
				}
				for _, name := range tables {
					fmt.Println(name)
				}
				return nil
			}

			info, err := db.Introspect(ctx, table)
			if err != nil {
				return err
			}
			if !info.Exists {
				fmt.Printf("Table %s does not exist.\n", table)
				return nil
			}

			fmt.Printf("%s (%s)\n", strings.ToLower(table), db.Dialect())
			for _, col := range info.Columns.Names() {
				fmt.Printf("  %-24s %s\n", col, info.Columns[col])
			}
			return nil
		},
	}
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Show what sync would change for each model",
		Flags: []cli.Flag{
			modelsFlag(),
			&cli.BoolFlag{
				Name:  "sql",
				Usage: "Output the SQL statements instead of a human-readable diff",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDatabase(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			plans, planErr := db.PlanFiles(ctx, cmd.String("models"))
			if plans == nil {
				return planErr
			}

			if cmd.Bool("sql") {
				for _, plan := range plans {
					for _, stmt := range plan.SQL {
						fmt.Printf("%s;\n", stmt)
					}
				}
				return planErr
			}

			showPlans(plans)
			return planErr
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create or alter tables to match the model files",
		Flags: []cli.Flag{
			modelsFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be applied without making changes",
			},
			&cli.BoolFlag{
				Name:  "skip-destructive",
				Usage: "Leave tables whose changes would drop or retype columns untouched",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation prompt for destructive changes",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDatabase(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			dryRun := cmd.Bool("dry-run")
			skipDestructive := cmd.Bool("skip-destructive")

			plans, err := db.PlanFiles(ctx, cmd.String("models"))
			if err != nil {
				if plans != nil {
					showPlans(plans)
				}
				return err
			}

			pending := 0
			destructive := false
			for _, plan := range plans {
				if !plan.Empty() {
					pending++
					destructive = destructive || plan.Destructive()
				}
			}
			if pending == 0 {
				fmt.Println("All tables are in sync.")
				return nil
			}

			fmt.Println("Schema changes to be applied:")
			showPlans(plans)

			if dryRun {
				fmt.Println("\nDry run - no changes applied.")
				return nil
			}

			if destructive && !skipDestructive && !cmd.Bool("force") {
				ok, err := confirm("\nWARNING: Destructive changes detected. Continue? (yes/no): ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			applied, err := db.ApplyPlans(ctx, plans, orm.SyncOptions{SkipDestructive: skipDestructive})
			if err != nil {
				return fmt.Errorf("apply changes: %w", err)
			}

			fmt.Printf("\n%d table(s) synced successfully!\n", len(applied))
			return nil
		},
	}
}

func dropCommand() *cli.Command {
	return &cli.Command{
		Name:  "drop",
		Usage: "Drop every table in the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip confirmation prompt",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDatabase(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			if !cmd.Bool("yes") {
				ok, err := confirm("Drop every table? (yes/no): ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			n, err := db.DropTables(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Dropped %d table(s).\n", n)
			return nil
		},
	}
}

// overrides collects the global flags that were set on the command line
func overrides(cmd *cli.Command) map[string]any {
	out := map[string]any{}
	for _, name := range []string{"dialect", "host", "database", "user", "password", "log-level"} {
		if cmd.IsSet(name) {
			out[name] = cmd.String(name)
		}
	}
	if cmd.IsSet("port") {
		out["port"] = cmd.Int("port")
	}
	return out
}

func openDatabase(ctx context.Context, cmd *cli.Command) (*orm.Database, error) {
	cfg, err := config.LoadWithOverrides(overrides(cmd))
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	db, err := orm.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetType(err), "open %s database", cfg.Database.Dialect)
	}
	return db, nil
}

func showPlans(plans []orm.Plan) {
	for _, plan := range plans {
		switch {
		case plan.Empty() && len(plan.Actions) == 0:
			fmt.Printf("%s: in sync\n", plan.Table)
		case !plan.Exists:
			fmt.Printf("%s: create table\n", plan.Table)
		default:
			fmt.Printf("%s: %d change(s)\n", plan.Table, len(plan.Actions))
			fmt.Print(diff.Describe(plan.Actions))
		}
	}
}

func confirm(prompt string) (bool, error) {
	fmt.Print(prompt)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y", nil
}
