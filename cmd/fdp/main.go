package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fdp-go/internal/app"
	"fdp-go/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an FDPApp. The caller must defer
// closeApp. operation identifies the CLI command being run.
func newApp(cmd *cobra.Command, operation string, args []string) (*app.FDPApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	a, err := app.NewFDPApp(cmd.Context(), cfg, operation, strings.Join(args, " "), level)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// unlockedApp is newApp followed by unlocking the local account.
func unlockedApp(cmd *cobra.Command, operation string, args []string) (*app.FDPApp, error) {
	a, err := newApp(cmd, operation, args)
	if err != nil {
		return nil, err
	}
	if !a.HasAccount() {
		a.Close()
		return nil, fmt.Errorf("no account configured: run 'fdp account create' or 'fdp account login'")
	}
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Unlock(passphrase); err != nil {
		a.Close()
		return nil, fmt.Errorf("unlocking account: %w", err)
	}
	return a, nil
}

// closeApp records the command outcome and closes the app.
func closeApp(a *app.FDPApp, errp *error) {
	if *errp != nil {
		a.Fail(*errp)
	}
	if err := a.Close(); err != nil && *errp == nil {
		*errp = err
	}
}

// readPassphrase returns FDP_PASSPHRASE when set, otherwise prompts on
// the terminal without echo, or reads a line from a non-terminal stdin.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv(app.PassphraseEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewPassphrase asks twice on a terminal.
func readNewPassphrase() (string, error) {
	p, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if os.Getenv(app.PassphraseEnv) != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return p, nil
	}
	confirm, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm != p {
		return "", fmt.Errorf("passphrases do not match")
	}
	return p, nil
}

func success(format string, args ...any) {
	fmt.Println(color.GreenString(format, args...))
}

var rootCmd = &cobra.Command{
	Use:          "fdp",
	Short:        "Fair data protocol file layer",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		success("Configuration initialized at %s", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Vault:    %s %s\n", cfg.Vault.Type, cfg.Vault.FSVaultRoot)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		table := uitable.New()
		table.AddRow("Base Dir:", cfg.BaseDir)
		table.AddRow("Log Dir:", cfg.LogDir)
		table.AddRow("Account:", cfg.Account.Username)
		table.AddRow("Key Path:", cfg.Account.KeyPath)
		table.AddRow("Batch ID:", cfg.Node.BatchID)
		table.AddRow("Vault:", cfg.Vault.Type)
		table.AddRow("Block Size:", cfg.Upload.BlockSize)
		table.AddRow("Gateway:", cfg.Gateway.ListenAddr)
		fmt.Println(table)
		return nil
	},
}

// account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the local account",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create USERNAME",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "CreateAccount", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		addr, err := a.CreateAccount(cmd.Context(), args[0], passphrase)
		if err != nil {
			return fmt.Errorf("creating account: %w", err)
		}
		if err := rememberUsername(args[0]); err != nil {
			return err
		}

		success("Account %s created", args[0])
		fmt.Printf("Address: %s\n", addr)
		return nil
	},
}

var accountLoginCmd = &cobra.Command{
	Use:   "login USERNAME ADDRESS",
	Short: "Restore an existing account from the network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "Login", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		addr, err := a.Login(cmd.Context(), args[0], args[1], passphrase)
		if err != nil {
			return fmt.Errorf("logging in: %w", err)
		}
		if err := rememberUsername(args[0]); err != nil {
			return err
		}

		success("Logged in as %s (%s)", args[0], addr)
		return nil
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the local account",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "AccountInfo", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		info, err := a.AccountInfo()
		if err != nil {
			return err
		}
		table := uitable.New()
		table.AddRow("Username:", info.Username)
		table.AddRow("Address:", info.Address.String())
		table.AddRow("Public Key:", color.HiBlackString(info.PublicKey))
		fmt.Println(table)
		return nil
	},
}

// rememberUsername stores the account name in the config file.
func rememberUsername(username string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Account.Username = username
	return config.Save(path, cfg)
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write debug records to the log file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountLoginCmd)
	accountCmd.AddCommand(accountShowCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(accountCmd)
}
