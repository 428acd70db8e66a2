package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maravicoffee/project-alfred/internal/agent"
	"github.com/maravicoffee/project-alfred/internal/capability"
	"github.com/maravicoffee/project-alfred/internal/capability/builtin"
	"github.com/maravicoffee/project-alfred/internal/config"
	"github.com/maravicoffee/project-alfred/internal/generation"
	"github.com/maravicoffee/project-alfred/internal/logging"
	"github.com/maravicoffee/project-alfred/internal/proactive"
	"github.com/maravicoffee/project-alfred/internal/recovery"
	"github.com/maravicoffee/project-alfred/internal/twin"
)

var (
	// Global flags
	configPath string
	userID     string
	verbose    bool

	logger *zap.Logger

	cfg      *config.Config
	svc      *agent.Service
	twins    *twin.Store
	snapshot *twin.SnapshotStore
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alfred",
	Short: "Alfred - a personal assistant that learns how you work",
	Long: `Alfred is a personal assistant agent. Each request runs through a
cognitive loop (analyze, plan, execute, observe) backed by a capability
registry, a per-user learned profile, and a proactive suggestion engine.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// runCmd processes a single request
var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Process a single request through the cognitive loop",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := processOnce(strings.Join(args, " "))
		printResult(result)
		saveProfiles()
		if result.Status != "success" {
			return fmt.Errorf("task failed: %s", result.Error)
		}
		return nil
	},
}

// capabilitiesCmd lists what Alfred can do
var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List registered capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, meta := range svc.Capabilities() {
			fmt.Printf("%-16s %s\n", meta.Name, meta.Description)
			for _, p := range meta.Parameters {
				required := ""
				if p.Required {
					required = " (required)"
				}
				fmt.Printf("    %-12s %s%s - %s\n", p.Name, p.Type, required, p.Description)
			}
		}
		return nil
	},
}

// profileCmd shows what Alfred has learned about the user
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the learned user profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := svc.Profile(userID)
		fmt.Printf("User:                %s\n", p.UserID)
		fmt.Printf("Messages:            %d\n", p.TotalMessages)
		fmt.Printf("Communication style: %s\n", p.CommunicationStyle())
		fmt.Printf("Response length:     %s\n", p.ResponseLength())
		fmt.Printf("Suggestions:         %s\n", p.SuggestionFrequency())
		if caps := p.MostUsedCapabilities(3); len(caps) > 0 {
			fmt.Printf("Top capabilities:    %s\n", strings.Join(caps, ", "))
		}
		if tasks := p.CommonTaskTypes(3); len(tasks) > 0 {
			fmt.Printf("Common tasks:        %s\n", strings.Join(tasks, ", "))
		}
		if topics := p.RecentTopics; len(topics) > 0 {
			fmt.Printf("Recent topics:       %s\n", strings.Join(topics, ", "))
		}
		if hours := p.PeakActivityHours(); len(hours) > 0 {
			fmt.Printf("Peak hours:          %v\n", hours)
		}
		return nil
	},
}

// suggestionsCmd manages pending suggestions
var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List pending suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		pending := svc.Suggestions(userID, cfg.Agent.SuggestionLimit)
		if len(pending) == 0 {
			fmt.Println("No pending suggestions.")
			return nil
		}
		for _, s := range pending {
			fmt.Printf("[%s] %s (%s)\n    %s\n    id: %s\n", s.Priority, s.Title, s.Type, s.Description, s.ID)
		}
		return nil
	},
}

var acceptCmd = &cobra.Command{
	Use:   "accept [suggestion-id]",
	Short: "Accept a pending suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc.AcceptSuggestion(userID, args[0])
		fmt.Println("Accepted.")
		return nil
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss [suggestion-id]",
	Short: "Dismiss a pending suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc.DismissSuggestion(userID, args[0])
		fmt.Println("Dismissed.")
		return nil
	},
}

func setup() error {
	// A missing .env is fine; explicit config wins over it.
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err = logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	if userID == "" {
		userID = cfg.Agent.DefaultUser
	}

	registry := capability.NewRegistry(logger)
	registry.MustRegister(builtin.Echo())
	registry.MustRegister(builtin.Calculator())
	registry.MustRegister(builtin.DataAnalysis())
	registry.MustRegister(builtin.FileOperations(cfg.Tools.WorkDir))
	registry.MustRegister(builtin.CodeExecution(cfg.Tools.Interpreter, config.Duration(cfg.Tools.ExecTimeout, 30*time.Second)))
	if cfg.Tools.SearchEnabled {
		registry.MustRegister(builtin.WebSearch(&http.Client{Timeout: 15 * time.Second}))
	}

	twins = twin.NewStore(logger)
	if cfg.Storage.DatabasePath != "" {
		snapshot, err = twin.OpenSnapshotStore(cfg.Storage.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("failed to open profile store: %w", err)
		}
		if err := snapshot.Load(twins); err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}
	}

	engine := proactive.NewEngine(twins, logger)
	breakers := recovery.NewBreakerSet(logger,
		recovery.WithThreshold(cfg.Recovery.BreakerThreshold),
		recovery.WithCooldown(config.Duration(cfg.Recovery.BreakerCooldown, recovery.DefaultBreakerCooldown)))

	svc = agent.NewService(registry, twins, engine, generation.NewRuleClient(), breakers, logger)
	return nil
}

func teardown() {
	saveProfiles()
	if snapshot != nil {
		_ = snapshot.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// saveProfiles snapshots all profiles, retrying briefly in case the
// database is busy.
func saveProfiles() {
	if snapshot == nil {
		return
	}
	save := recovery.Chain(func(ctx context.Context) (any, error) {
		return nil, snapshot.Save(twins)
	}, recovery.Retry(recovery.RetryPolicy{
		MaxAttempts: cfg.Recovery.MaxAttempts,
		BaseDelay:   config.Duration(cfg.Recovery.BaseDelay, 200*time.Millisecond),
	}))
	if _, err := save(context.Background()); err != nil {
		logger.Warn("failed to save profiles", zap.Error(err))
	}
}

func processOnce(text string) agent.TaskResult {
	ctx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Agent.TaskTimeout, 2*time.Minute))
	defer cancel()
	return svc.ProcessTask(ctx, userID, text)
}

func runChat() error {
	fmt.Printf("Alfred at your service, %s. Type 'exit' to leave.\n", userID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	scanner := bufio.NewScanner(os.Stdin)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-sigCh:
			fmt.Println("\nGoodbye.")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				fmt.Println("Goodbye.")
				return nil
			}

			printResult(processOnce(text))
			saveProfiles()
		}
	}
}

func printResult(result agent.TaskResult) {
	if result.Status != "success" {
		fmt.Printf("Something went wrong: %s\n", result.Error)
		return
	}
	fmt.Println(result.Response)

	if result.Metadata == nil {
		return
	}
	for _, s := range result.Metadata.Observation.Suggestions {
		fmt.Printf("  suggestion: %s - %s\n", s.Title, s.Description)
	}
	if !result.Metadata.Observation.TaskComplete {
		fmt.Println("  (some steps did not complete; see logs for details)")
	}
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "alfred.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user identity (defaults to config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	suggestionsCmd.AddCommand(acceptCmd, dismissCmd)
	rootCmd.AddCommand(runCmd, capabilitiesCmd, profileCmd, suggestionsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
