package commands

import (
	"context"
	"fmt"
	"os"
	"tfaprotbot/lib/botconfig"
	"tfaprotbot/lib/lastrun"
	"tfaprotbot/lib/serviceutil"
	"tfaprotbot/lib/tableutil"
	"tfaprotbot/lib/timezone"
	"tfaprotbot/services/potd"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	dryRun      bool
	debug       bool
	skipCleanup bool
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and http dumps.")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be uploaded, protected and deleted.")
	rootCmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "Do not delete images that left the main page.")
}

var rootCmd = &cobra.Command{
	Use:   "potdbot",
	Short: "potdbot uploads and protects local copies of the images shown on the main page.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rt, err := botconfig.Start(ctx, "potdbot", configPath, debug)
		if err != nil {
			serviceutil.Fatal("failed to start", err)
		}
		defer rt.Close()
		fatal := func(message string, err error) {
			rt.Close()
			serviceutil.Fatal(message, err)
		}

		wiki, err := rt.Config.NewWikiClient(ctx, rt.Dump)
		if err != nil {
			fatal("failed to connect to the wiki", err)
		}
		commons, err := rt.Config.NewCommonsClient(ctx, rt.Dump)
		if err != nil {
			fatal("failed to connect to commons", err)
		}

		service := potd.NewService(wiki, commons, potd.Options{
			WatchPage:     rt.Config.Potd.WatchPage,
			Username:      wiki.Username(),
			ProtectReason: rt.Config.Tfa.Reason,
			TempDir:       rt.Config.Potd.TempDir,
			DryRun:        dryRun,
			SkipCleanup:   skipCleanup,
		})
		result, err := service.Run(ctx)
		printSummary(rt.RunId, result)
		if err != nil {
			fatal("run failed", err)
		}

		if !dryRun {
			lastrun.Record(rt.Config.Potd.StatusFile, timezone.Now())
		}
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func printSummary(runId string, result potd.RunResult) {
	t := tableutil.NewTable(os.Stdout)
	t.AppendHeader(table.Row{"File", "Uploaded", "Protected"})
	for _, image := range result.Images {
		t.AppendRow(table.Row{image.Name, yesNo(image.Uploaded), yesNo(image.Protected)})
	}
	t.SetCaption("run %s", runId)
	t.Render()

	if len(result.Cleanup) == 0 {
		return
	}
	t = tableutil.NewTable(os.Stdout)
	t.AppendHeader(table.Row{"Removed file", "Restored revisions"})
	for _, c := range result.Cleanup {
		t.AppendRow(table.Row{c.Name, c.Restored})
	}
	t.Render()
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
