package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/lectern/internal/scaffolding"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter lectern project",
	Long: `Create a starter project in dir (default the current directory): a
config.toml, templates for an index page and a post page, and one Markdown
post under data/posts.

Existing files are never overwritten unless --force is given.

Examples:
  lectern init                     # Initialize in the current directory
  lectern init my-site             # Initialize in a new directory 'my-site'
  lectern init --template minimal  # A single page and no data
  lectern init --title "Field notes" --base-url https://notes.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initForce    bool
	initTemplate string
	initTitle    string
	initBaseURL  string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	initCmd.Flags().StringVarP(&initTemplate, "template", "t", scaffolding.DefaultTemplate, "project template (blog, minimal)")
	initCmd.Flags().StringVar(&initTitle, "title", "", "site title (default derived from the directory name)")
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "site base URL")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	files, err := scaffolding.NewGenerator().Generate(scaffolding.GenerateOptions{
		Dir:      projectDir,
		Template: initTemplate,
		Title:    initTitle,
		BaseURL:  initBaseURL,
		Force:    initForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, file := range files {
		fmt.Fprintf(out, "created %s\n", filepath.ToSlash(file))
	}
	fmt.Fprintf(out, "\nBuild the site with:\n  lectern --root %s\n", projectDir)
	return nil
}
