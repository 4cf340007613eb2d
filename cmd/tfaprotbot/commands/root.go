package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"tfaprotbot/lib/botconfig"
	"tfaprotbot/lib/lastrun"
	"tfaprotbot/lib/protection"
	"tfaprotbot/lib/serviceutil"
	"tfaprotbot/lib/tableutil"
	"tfaprotbot/lib/timezone"
	"tfaprotbot/services/tfa"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dryRun     bool
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging and http dumps.")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be protected.")
}

var rootCmd = &cobra.Command{
	Use:   "tfaprotbot",
	Short: "tfaprotbot move protects upcoming featured articles until they leave the main page.",
	Args:  cobra.NoArgs,
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

		client, err := rt.Config.NewWikiClient(ctx, rt.Dump)
		if err != nil {
			fatal("failed to connect to the wiki", err)
		}

		service := tfa.NewService(client, tfa.Options{
			Lookahead:    rt.Config.Tfa.Lookahead,
			MaxLookahead: rt.Config.Tfa.MaxLookahead,
			Reason:       rt.Config.Tfa.Reason,
			DryRun:       dryRun,
		})
		results, err := service.Run(ctx)
		printSummary(rt.RunId, results)
		if err != nil {
			fatal("run failed", err)
		}

		if !dryRun {
			lastrun.Record(rt.Config.Tfa.StatusFile, timezone.Now())
		}
	},
}

func formatPlan(plan protection.Plan) string {
	var parts []string
	for _, t := range plan.Types() {
		parts = append(parts, fmt.Sprintf("%s=%s", t, plan[t].Level))
	}
	return strings.Join(parts, ", ")
}

func printSummary(runId string, results []tfa.DayResult) {
	t := tableutil.NewTable(os.Stdout)
	t.AppendHeader(table.Row{"Day", "Page", "Protections", "Until", "Status"})
	for _, day := range results {
		if !day.Scheduled {
			t.AppendRow(table.Row{timezone.FormatDay(day.Day), "", "", "", "not scheduled"})
			continue
		}
		for _, page := range day.Pages {
			status := "already protected"
			switch {
			case page.Applied:
				status = "protected"
			case len(page.Plan) > 0:
				status = "not applied"
			}
			name := page.Title
			if page.Redirect {
				name += " (redirect)"
			}
			t.AppendRow(table.Row{
				timezone.FormatDay(day.Day),
				name,
				formatPlan(page.Plan),
				timezone.FormatTimestamp(day.Until),
				status,
			})
		}
	}
	t.SetCaption("run %s", runId)
	t.Render()
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
