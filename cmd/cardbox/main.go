package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/cardbox/internal/session"
	"github.com/kokistudios/cardbox/internal/store"
	"github.com/kokistudios/cardbox/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// deckFlag selects the deck for every deck command: a title inside
// CARDBOX_HOME/decks or a path to a .json file.
var deckFlag string

func main() {
	var noColor, verbose bool

	rootCmd := &cobra.Command{
		Use:   "cardbox",
		Short: "cardbox: flashcards in your terminal",
		Long:  "A local flashcard box. Cards have a front, a back, a difficulty category and #hashtags, and live in a plain JSON file.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor, verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&deckFlag, "deck", "d", "", "Deck title or path to a deck file (default: deck.default_title)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "cards", Title: "Card Commands:"},
		&cobra.Group{ID: "study", Title: "Study & Serve:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), newCmd(), listCmd(), doctorCmd()} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		showCmd(), addCmd(), editCmd(), categorizeCmd(), deleteCmd(),
		tagsCmd(), selectCmd(), renameCmd(), importCmd(), exportCmd(),
	} {
		c.GroupID = "cards"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{studyCmd(), serveCmd()} {
		c.GroupID = "study"
		rootCmd.AddCommand(c)
	}
	configC := configCmd()
	configC.GroupID = "config"
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(mcpServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize CARDBOX_HOME directory structure",
		Long:    "Create the CARDBOX_HOME directory (~/.cardbox by default) with decks/ and config.yaml. Run this once before using any other cardbox commands.",
		Example: "  cardbox init\n  cardbox init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.LogoWithTagline("flashcards in your terminal")
			ui.Success("cardbox initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if CARDBOX_HOME already exists")
	return cmd
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("cardbox not initialized, run 'cardbox init' first: %w", err)
	}
	return s, nil
}

// openDeck opens the deck selected by --deck.
func openDeck() (*store.Store, *session.Session, error) {
	s, err := loadStore()
	if err != nil {
		return nil, nil, err
	}
	path := s.ResolveDeck(deckFlag)
	sess, err := session.Open(path, s.Config, session.WithLogger(ui.Logger))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("no deck at %s, create one with 'cardbox new'", path)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, sess, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit cardbox configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		Long:  "Display the configuration after CARDBOX_* environment overrides are applied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a cardbox configuration value. Valid keys: deck.default_title, deck.default_category, deck.undo_window, deck.autosave, display.word_wrap, display.markdown, serve.addr.",
		Example: `  cardbox config set deck.default_category Medium
  cardbox config set deck.undo_window 5s
  cardbox config set display.markdown false`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return store.ConfigKeys, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of CARDBOX_HOME and its decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if _, err := os.Stat(home); err != nil {
				return fmt.Errorf("cardbox not initialized, run 'cardbox init' first: %w", err)
			}

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			issues := store.CheckHealth(home)
			issues = append(issues, store.CheckDeckIntegrity(home)...)

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing directories and config, and remove leftover temp files")
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  cardbox completion bash > ~/.bashrc.d/cardbox\n  cardbox completion zsh > ~/.zfunc/_cardbox\n  cardbox completion fish > ~/.config/fish/completions/cardbox.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
