// main.go - Batch analytics control tool for Shopalytics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shopalytics/internal"
	"shopalytics/internal/reports"
	"shopalytics/internal/seeder"
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&RunCommand{},
	&ReportCommand{},
	&MigrateCommand{},
	&SeedCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	// Load a .env file if one is present; a missing file is fine.
	_ = godotenv.Load()

	flag.Parse()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	// Parse command and arguments
	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	// Try to initialize the app
	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
		// Let the command handle this situation
	}

	// Ensure app is cleaned up
	defer func() {
		if app != nil {
			if err := app.Close(); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	// Execute the command
	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// RunCommand executes a full pipeline run over a raw dataset
type RunCommand struct{}

// Name returns the command name
func (c *RunCommand) Name() string {
	return "run"
}

// Description returns the command description
func (c *RunCommand) Description() string {
	return "Rebuilds the snapshot and all marts from a raw dataset directory"
}

// Execute implements the run command
func (c *RunCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dir := fs.String("dir", "", "raw dataset directory (defaults to the configured data dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run the pipeline")
	}

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	run, err := app.Pipeline.Run(resolveDir(app, *dir))
	if err != nil {
		return err
	}

	log.Printf("Run %s finished in %s", run.ID, run.Duration())
	log.Printf("- Sessions: %d", run.Sessions)
	log.Printf("- Pageviews: %d", run.Pageviews)
	log.Printf("- Orders: %d", run.Orders)
	log.Printf("- Mart rows: %d", run.MartRows)
	return nil
}

// ReportCommand rebuilds a single mart by name
type ReportCommand struct{}

// Name returns the command name
func (c *ReportCommand) Name() string {
	return "report"
}

// Description returns the command description
func (c *ReportCommand) Description() string {
	return "Rebuilds one mart from a raw dataset directory (use -list to see marts)"
}

// Execute implements the report command
func (c *ReportCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	dir := fs.String("dir", "", "raw dataset directory (defaults to the configured data dir)")
	list := fs.Bool("list", false, "list the available marts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *list {
		fmt.Println("Available marts:")
		for _, builder := range reports.Registry() {
			fmt.Printf("  %s: %s\n", builder.Name, reports.DisplayName(builder.Name))
		}
		return nil
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: %s [-dir PATH] <mart>", c.Name())
	}
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot rebuild the mart")
	}

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	name := fs.Arg(0)
	rows, err := app.Pipeline.RunReport(resolveDir(app, *dir), name)
	if err != nil {
		return err
	}

	log.Printf("Mart %s rebuilt with %d rows", name, rows)
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// SeedCommand generates a synthetic raw dataset
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Generates a synthetic raw CSV dataset" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	sessions := fs.Int("sessions", 0, "number of sessions to generate (defaults to the configured value)")
	months := fs.Int("months", 0, "number of months to spread sessions over (defaults to the configured value)")
	dir := fs.String("dir", "", "output directory (defaults to the configured data dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}

	count := *sessions
	if count <= 0 {
		count = app.Config.SeedSessions
	}
	span := *months
	if span <= 0 {
		span = app.Config.SeedMonths
	}

	se := seeder.NewSeeder(app.Logger, count, span)
	return se.Run(ctx, resolveDir(app, *dir))
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

// Name returns the command name
func (c *StatusCommand) Name() string {
	return "status"
}

// Description returns the command description
func (c *StatusCommand) Description() string {
	return "Shows the current system status"
}

// Execute implements the status command
func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	log.Println("System Status:")
	log.Printf("- Database: %s", app.Config.GetDatabasePath())

	runs, err := app.Pipeline.LastRuns(5)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		log.Println("- Runs: none recorded")
	}
	for _, run := range runs {
		log.Printf("- Run %s: %s (started %s, %d mart rows)",
			run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), run.MartRows)
	}

	counts, err := app.Pipeline.TableCounts()
	if err != nil {
		return fmt.Errorf("failed to count tables: %w", err)
	}
	for _, count := range counts {
		log.Printf("- %s: %d rows", count.Table, count.Rows)
	}

	// Check database statistics
	sqlDB, err := app.DBManager.GetConnection().DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	log.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

// Name returns the command name
func (c *HelpCommand) Name() string {
	return "help"
}

// Description returns the command description
func (c *HelpCommand) Description() string {
	return "Shows usage information"
}

// Execute implements the help command
func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fmt.Println("Usage: shopalytics [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}

	return nil
}

// Helper functions

// resolveDir picks the dataset directory: the -dir flag when given,
// otherwise the configured data directory.
func resolveDir(app *internal.Application, dir string) string {
	if dir != "" {
		return dir
	}
	return app.Config.DataDirectory
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	fmt.Println("Usage: shopalytics [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}

	os.Exit(1)
}
