package commands

import (
	"os"
	"tfaprotbot/lib/botconfig"
	"tfaprotbot/lib/mwapi"
	"tfaprotbot/lib/serviceutil"
	"tfaprotbot/lib/tableutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <title>...",
	Short: "Print the current protection of some pages.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rt, err := botconfig.Start(ctx, "tfaprotbot", configPath, debug)
		if err != nil {
			serviceutil.Fatal("failed to start", err)
		}
		defer rt.Close()
		fatal := func(message string, err error) {
			rt.Close()
			serviceutil.Fatal(message, err)
		}

		// protection status is public, no need to log in
		client, err := mwapi.NewClient(ctx, mwapi.ClientOptions{
			ApiUrl:    rt.Config.Wiki.ApiUrl,
			UserAgent: rt.Config.UserAgent,
			Dump:      rt.Dump,
		})
		if err != nil {
			fatal("failed to create client", err)
		}

		t := tableutil.NewTable(os.Stdout)
		t.AppendHeader(table.Row{"Page", "Type", "Level", "Expiry", "Cascade", "Source"})
		for _, title := range args {
			exists, err := client.PageExists(ctx, title)
			if err != nil {
				fatal("failed to look up page", err)
			}
			if !exists {
				t.AppendRow(table.Row{title, "(missing)", "", "", "", ""})
				continue
			}
			status, err := client.ProtectionStatus(ctx, title)
			if err != nil {
				fatal("failed to get protection status", err)
			}
			if len(status) == 0 {
				t.AppendRow(table.Row{title, "", "", "", "", ""})
			}
			for _, e := range status {
				t.AppendRow(table.Row{title, e.Type, e.Level, e.Expiry.String(), e.Cascade, e.Source})
			}
		}
		t.SetCaption("run %s", rt.RunId)
		t.Render()
	},
}
