package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gitkv-project/gitkv"
	"github.com/gitkv-project/gitkv/internal/gitkvconfig"
)

var (
	flagConfigFile string
	flagDataDir    string
	flagRepoURL    string
	flagBranch     string
	flagLogFile    string
)

var rootCmd = &cobra.Command{
	Use:   "gitkv",
	Short: "Embeddable Git-backed key-value store",
	Long: `gitkv persists a key-value store's entire state into a Git
repository and synchronizes across writers via periodic merges and a
force-push of the merged snapshot.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a gitkv.toml config file")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "working directory for the store (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagRepoURL, "repo-url", "", "remote git URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagBranch, "branch", "", "branch name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "rotate logs to this file instead of stderr")

	rootCmd.AddCommand(getCmd, setCmd, delCmd, typeCmd)
	rootCmd.AddCommand(keysCmd, scanCmd)
	rootCmd.AddCommand(lpushCmd, rpushCmd, lrangeCmd)
	rootCmd.AddCommand(syncCmd, statusCmd, compactCmd, serveCmd)
}

// cliLogger builds the logger every subcommand's Store uses. When
// --log-file is set, output rotates through lumberjack at the teacher's
// conventional 10MB/5-backups rather than growing an unbounded file.
func cliLogger() *log.Logger {
	var w io.Writer = os.Stderr
	if flagLogFile != "" {
		w = &lumberjack.Logger{
			Filename:   flagLogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			Compress:   true,
		}
	}
	return log.New(w, "[gitkv] ", log.LstdFlags)
}

// loadConfig layers defaults, the optional --config file, environment
// variables, and CLI flag overrides, in that increasing precedence.
func loadConfig() (gitkvconfig.Config, error) {
	cfg, err := gitkvconfig.Load(flagConfigFile)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagRepoURL != "" {
		cfg.RepoURL = flagRepoURL
	}
	if flagBranch != "" {
		cfg.Branch = flagBranch
	}
	cfg.Logger = cliLogger()
	return cfg, nil
}

// openStore loads the layered config and opens a Store; callers must Close it.
func openStore() (*gitkv.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return gitkv.Open(cfg)
}
