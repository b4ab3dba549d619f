package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// logsCmd は、プロジェクトの処理ログを時系列で表示するのだ。
var logsCmd = &cobra.Command{
	Use:   "logs <project-id>",
	Short: "プロジェクトの処理ログを表示しますなのだ。",
	Args:  cobra.ExactArgs(1),
	RunE:  logsCommand,
}

func logsCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	repo, err := pipeline.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	logs, err := repo.LogsByProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ログはまだないのだ。")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTAGE\tSTATUS\tDURATION\tMESSAGE")
	for _, entry := range logs {
		duration := ""
		if entry.DurationMillis > 0 {
			duration = fmt.Sprintf("%dms", entry.DurationMillis)
		}
		message := entry.Message
		if entry.ErrorDetail != "" && entry.ErrorDetail != entry.Message {
			message = fmt.Sprintf("%s (%s)", entry.Message, firstLine(entry.ErrorDetail))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Format("15:04:05"), entry.Stage, entry.Status, duration, message)
	}
	return w.Flush()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
