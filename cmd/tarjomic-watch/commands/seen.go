package commands

import (
	"os"
	"sort"
	"strings"
	"tarjomic-watch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seenCmd)
}

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Prints the order ids already seen for every account.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := LoadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		store, closeStore, err := openStore(config.State, tel())
		if err != nil {
			serviceutil.Fatal("failed to open order state", err)
		}
		defer closeStore()
		err = store.Load(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load order state", err)
		}

		snapshot := store.Snapshot()
		accounts := make([]string, 0, len(snapshot))
		for account := range snapshot {
			accounts = append(accounts, account)
		}
		sort.Strings(accounts)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Account", "Seen", "Order IDs"})
		for _, account := range accounts {
			ids := make([]string, len(snapshot[account]))
			for i, id := range snapshot[account] {
				ids[i] = id.String()
			}
			t.AppendRow(table.Row{account, len(ids), strings.Join(ids, ", ")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
