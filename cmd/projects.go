package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// projectsCmd は、ユーザーのプロジェクト一覧を表示するのだ。
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "プロジェクトの一覧を表示しますなのだ。",
	RunE:  projectsCommand,
}

func projectsCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	repo, err := pipeline.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	projects, err := repo.ListProjects(cmd.Context(), opts.UserID)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "プロジェクトはまだないのだ。")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCREATED")
	for _, project := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			project.ID, project.Title, project.Status,
			project.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
