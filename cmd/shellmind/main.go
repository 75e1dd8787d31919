package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shellmind/internal/config"
	"shellmind/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	workDir    string

	// Logger for CLI-level diagnostics; category logs carry the rest.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shellmind",
	Short: "shellmind - an autonomous command-line agent",
	Long: `shellmind is an autonomous agent for the command line.

It turns natural language requests into tool plans (shell commands,
file operations, image classification, memory recall), asks for
approval before anything runs, and reflects on each result until the
task is done. Conversation history that outgrows the session window
is embedded into a local SQLite vector store and recalled in later
sessions.

Run without arguments to start the interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
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
		logging.CloseAudit()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive session",
	RunE:  runChat,
}

var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Execute a single instruction and exit",
	Long: `Processes one natural language instruction through the full loop:
think, propose a plan, confirm, execute, reflect. Prints the final
answer and exits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstruction,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and store statistics",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.DefaultConfig()
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shellmind.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose CLI diagnostics")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "working directory for tool execution")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
