package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/samaritan/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Options holds the shared configuration for the watch and enroll commands.
type Options struct {
	EnrollRoot    string
	Engine        string
	Models        string
	WorkerScript  string
	WorkerTimeout string
	Tolerance     float64
	Camera        int
	Window        string
	Glyph         string
	Journal       bool
}

// dbAnnotation tells PersistentPreRunE whether a command talks to PostgreSQL.
const (
	dbAnnotation = "db"
	dbRequired   = "required"
	dbJournal    = "journal" // only when --journal is set
)

var (
	opts Options

	// DB is the global database connection shared by subcommands.
	// It stays nil for runs that do not use the journal.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:         "samaritan",
	Short:       "Live video face identity overlay",
	Long:        "Watches a camera feed, recognises enrolled faces and draws a role-colored locator and name over each one. Without a subcommand it runs 'watch'.",
	Version:     Version, // This enables the --version flag
	Annotations: map[string]string{dbAnnotation: dbJournal},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsDB(cmd, opts.Journal) {
			return nil
		}

		url := resolveDBURL(dbURL)
		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeDB()
	},
	Run: func(cmd *cobra.Command, args []string) {
		runWatch(cmd.Context(), opts)
	},
}

func needsDB(cmd *cobra.Command, journal bool) bool {
	switch cmd.Annotations[dbAnnotation] {
	case dbRequired:
		return true
	case dbJournal:
		return journal
	}
	return false
}

// resolveDBURL picks the --db flag, then POSTGRES_* environment variables, then a local default.
func resolveDBURL(flag string) string {
	if flag != "" {
		return flag
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/samaritan"
}

func closeDB() {
	if DB != nil {
		// Use Background here because the main context might be cancelled already (due to Ctrl+C)
		// and we still need to send the "Close" command to the DB.
		DB.Close(context.Background())
		DB = nil
	}
}

// loadEnv reads .env from the working directory when present.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to load .env: %v\n", err)
	}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadEnv)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/samaritan)")
	pf.StringVarP(&opts.EnrollRoot, "enroll-root", "r", ".", "Directory holding the admins, primary_assets, assets and threats folders")
	pf.StringVarP(&opts.Engine, "engine", "e", "dlib", "Face engine: dlib, python")
	pf.StringVar(&opts.Models, "models", "models", "Directory with the dlib model files (dlib engine)")
	pf.StringVar(&opts.WorkerScript, "worker-script", "python/worker.py", "Path to the face_recognition worker (python engine)")
	pf.StringVar(&opts.WorkerTimeout, "worker-timeout", "30s", "Timeout for the worker to answer a single request")
	pf.Float64VarP(&opts.Tolerance, "tolerance", "t", 0.6, "Face matching tolerance (lower is stricter)")
}
