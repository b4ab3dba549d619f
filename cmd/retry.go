package cmd

import (
	"fmt"
	"strconv"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// retryCmd は、失敗したページ1枚の画像合成をやり直すのだ。
var retryCmd = &cobra.Command{
	Use:   "retry <project-id> <page-number>",
	Short: "失敗したページの画像合成を再試行しますなのだ。",
	Args:  cobra.ExactArgs(2),
	RunE:  retryCommand,
}

func retryCommand(cmd *cobra.Command, args []string) error {
	pageNumber, err := strconv.Atoi(args[1])
	if err != nil || pageNumber < 1 {
		return fmt.Errorf("ページ番号には1以上の整数を指定してほしいのだ: %q", args[1])
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	return pipeline.ExecuteRetry(cmd.Context(), cfg, args[0], pageNumber)
}
