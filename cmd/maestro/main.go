package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"maestro/internal/agents"
	"maestro/internal/casefile"
	"maestro/internal/classify"
	"maestro/internal/config"
	"maestro/internal/logging"
	"maestro/internal/tracker"
	"maestro/internal/workflow"
	"maestro/internal/world"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd runs one workflow for the request given as the positional
// argument.
var rootCmd = &cobra.Command{
	Use:   "maestro [request]",
	Short: "maestro - phase-sequenced workflow engine",
	Long: `maestro executes a software-change request through a fixed phase
sequence. Every phase passes the constitutional validation gate before its
collaborator runs; outcomes land in the world model graph, failures are
recorded as case files, and completed runs are scored.`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runRequest,
}

// graphCmd prints the world model summary.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the world model graph",
	Args:  cobra.NoArgs,
	RunE:  showGraph,
}

// incidentsCmd lists recorded case files.
var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List recorded case files",
	Args:  cobra.NoArgs,
	RunE:  showIncidents,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(incidentsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// boot loads config and initializes categorized logging.
func boot() (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(workspace, logging.Settings{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(args[0])
	if text == "" {
		return fmt.Errorf("request text is empty")
	}

	cfg, err := boot()
	if err != nil {
		return err
	}

	graph, err := world.LoadGraph(
		filepath.Join(workspace, cfg.World.SnapshotPath),
		filepath.Join(workspace, cfg.World.BackupPath),
	)
	if err != nil {
		return fmt.Errorf("failed to load world model: %w", err)
	}

	repo, err := tracker.Open(filepath.Join(workspace, cfg.Tracker.DatabasePath))
	if err != nil {
		return fmt.Errorf("failed to open request tracker: %w", err)
	}
	defer repo.Close()

	classifier := classify.NewClassifier(nil)
	category := classifier.Classify(text)
	record, err := repo.Observe(text, category == classify.CategoryBugFix)
	if err != nil {
		return err
	}

	engine := workflow.NewEngine(workflow.Options{
		Graph:        graph,
		Recorder:     casefile.NewRecorder(filepath.Join(workspace, cfg.Incidents.Directory), cfg.Incidents.LogExcerpt),
		Registry:     agents.DefaultRegistry(),
		Classifier:   classifier,
		RunsDir:      filepath.Join(workspace, ".maestro", "runs"),
		PhaseTimeout: cfg.PhaseTimeout(),
		ConfigSnap: map[string]string{
			"phase_timeout":       cfg.Engine.PhaseTimeout,
			"max_concurrent_runs": fmt.Sprintf("%d", cfg.Engine.MaxConcurrentRuns),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := workflow.Request{Text: text, Timestamp: time.Now(), Source: "cli"}
	result, runErr := engine.Execute(ctx, req, workflow.DefaultPlan(category))

	logger.Info("run finished",
		zap.String("runId", result.RunID),
		zap.String("status", string(result.FinalStatus)),
		zap.Float64("completion", result.Completion),
	)

	fmt.Printf("Run %s: %s (%.0f%% of phases attempted)\n", result.RunID, result.FinalStatus, result.Completion)
	for _, p := range result.Phases {
		fmt.Printf("  %-15s %s (%v)\n", p.Name, p.Status, p.Duration.Round(time.Millisecond))
	}
	if result.Score != nil {
		fmt.Printf("Goal score: %d  Confidence: %d\n", result.Score.GoalScore, result.Score.Confidence)
	}
	if runErr != nil {
		if result.LastCompletedPhase != "" {
			fmt.Printf("Last completed phase: %s\n", result.LastCompletedPhase)
		}
		return fmt.Errorf("run failed: %s", result.Error)
	}
	fmt.Printf("Unresolved likelihood if this request returns: tracked (seen %d time(s))\n", record.RepetitionCount)
	return nil
}

func showGraph(cmd *cobra.Command, args []string) error {
	cfg, err := boot()
	if err != nil {
		return err
	}

	graph, err := world.LoadGraph(
		filepath.Join(workspace, cfg.World.SnapshotPath),
		filepath.Join(workspace, cfg.World.BackupPath),
	)
	if err != nil {
		return err
	}

	nodes := graph.Nodes()
	fmt.Printf("World model: %d nodes, %d edges\n", len(nodes), len(graph.Edges()))
	fmt.Printf("Progress: %.1f%%  Quality: %.1f\n", graph.Progress(), graph.Quality())
	for _, n := range nodes {
		fmt.Printf("  %-30s %-12s %5.1f%%\n", n.ID, n.Status, n.PercentComplete)
	}
	return nil
}

func showIncidents(cmd *cobra.Command, args []string) error {
	cfg, err := boot()
	if err != nil {
		return err
	}

	recorder := casefile.NewRecorder(filepath.Join(workspace, cfg.Incidents.Directory), cfg.Incidents.LogExcerpt)
	incidents, err := recorder.List()
	if err != nil {
		return err
	}

	if len(incidents) == 0 {
		fmt.Println("No case files recorded.")
		return nil
	}
	for _, cf := range incidents {
		fmt.Printf("%s  %-16s %-20s %s\n", cf.CreatedAt.Format(time.RFC3339), cf.Kind, cf.Status, cf.Dossier.Intent)
	}
	return nil
}
