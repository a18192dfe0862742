package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miyifan/deepchat/config"
	"github.com/miyifan/deepchat/deepseek"
	"github.com/miyifan/deepchat/storage"
	"github.com/miyifan/deepchat/store"
	"github.com/miyifan/deepchat/tools"
	"github.com/miyifan/deepchat/ui"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "deepchat",
		Short:   "Terminal chat client for the DeepSeek API",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
		SilenceUsage: true,
	}

	root.AddCommand(balanceCmd(), searchCmd(), exportCmd(), keyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, credentials and the persisted window state.
func bootstrap() (*config.Config, *store.Store, *storage.SnapshotStorage, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, "", err
	}
	config.InitDebugLog(cfg.DataDir())

	apiKey, err := config.LoadAPIKey(cfg.DataDir(), "")
	if err != nil {
		return nil, nil, nil, "", err
	}

	snapshots, err := storage.NewSnapshotStorage(cfg.DataDir())
	if err != nil {
		return nil, nil, nil, "", err
	}

	st := store.New(cfg.DefaultChatSettings())
	if snap, ok, err := snapshots.Load(); err != nil {
		return nil, nil, nil, "", err
	} else if ok {
		st.Restore(snap)
	}
	if len(st.Windows()) == 0 {
		st.CreateWindow("")
	}

	return cfg, st, snapshots, apiKey, nil
}

func runTUI() error {
	cfg, st, snapshots, apiKey, err := bootstrap()
	if err != nil {
		return err
	}

	if locked, pid, err := snapshots.CheckInstanceLock(); err == nil && locked {
		return fmt.Errorf("another deepchat instance appears to be running (pid %d)", pid)
	}
	if err := snapshots.LockInstance(); err != nil {
		return fmt.Errorf("failed to create instance lock: %w", err)
	}
	defer snapshots.UnlockInstance()

	client := deepseek.NewClient(cfg.BaseURL, apiKey, tools.NewClient())
	balance := deepseek.NewBalanceCache(client)

	app := ui.New(st, client, balance, snapshots)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}

	// Final persistence pass: snapshot plus a fresh search index.
	snap := st.Snapshot()
	if err := snapshots.Save(snap); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if idx, err := storage.OpenSearchIndex(cfg.DataDir()); err == nil {
		defer idx.Close()
		if err := idx.Rebuild(snap); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("search index rebuild failed: %v", err)
		}
	}
	return nil
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, apiKey, err := bootstrap()
			if err != nil {
				return err
			}

			client := deepseek.NewClient(cfg.BaseURL, apiKey, nil)
			resp, err := client.Balance(context.Background())
			if err != nil {
				return err
			}

			if resp.IsAvailable {
				color.Green("Account is available")
			} else {
				color.Red("Account is unavailable")
			}
			for _, info := range resp.BalanceInfos {
				fmt.Printf("  %s  total %s  (granted %s, topped up %s)\n",
					color.CyanString(info.Currency),
					color.New(color.Bold).Sprint(info.TotalBalance),
					info.GrantedBalance,
					info.ToppedUpBalance)
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search all conversation windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, _, _, err := bootstrap()
			if err != nil {
				return err
			}

			idx, err := storage.OpenSearchIndex(cfg.DataDir())
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Rebuild(st.Snapshot()); err != nil {
				return err
			}

			results, err := idx.Search(args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				color.Yellow("No matches for %q", args[0])
				return nil
			}

			for _, r := range results {
				fmt.Printf("%s %s\n  %s\n",
					color.CyanString("[%s]", r.WindowTitle),
					color.New(color.Faint).Sprintf("(%s)", r.Role),
					r.Preview)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format string
	var out string

	cmd := &cobra.Command{
		Use:   "export [window-id]",
		Short: "Export a conversation window to JSON or HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, _, err := bootstrap()
			if err != nil {
				return err
			}

			var target store.Window
			if len(args) == 1 {
				found := false
				for _, w := range st.Windows() {
					if w.ID == args[0] {
						target = w
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("no window with id %q", args[0])
				}
			} else {
				w, ok := st.CurrentWindow()
				if !ok {
					return fmt.Errorf("no current window to export")
				}
				target = w
			}

			if out == "" {
				out = storage.GenerateExportPath(target.Title, format)
			}

			switch format {
			case "json":
				err = storage.ExportJSON(target, out)
			case "html":
				err = storage.ExportHTML(target, out)
			default:
				return fmt.Errorf("unknown format %q (want json or html)", format)
			}
			if err != nil {
				return err
			}

			color.Green("Exported to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format: json or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: Downloads)")
	return cmd
}

func keyCmd() *cobra.Command {
	var passphrase string

	set := &cobra.Command{
		Use:   "set <api-key>",
		Short: "Store the DeepSeek API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.SaveAPIKey(cfg.DataDir(), args[0], passphrase); err != nil {
				return err
			}
			if passphrase != "" {
				color.Green("API key stored encrypted")
			} else {
				color.Green("API key stored")
			}
			return nil
		},
	}
	set.Flags().StringVarP(&passphrase, "passphrase", "p", "", "encrypt the key at rest with this passphrase")

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API key",
	}
	cmd.AddCommand(set)
	return cmd
}
