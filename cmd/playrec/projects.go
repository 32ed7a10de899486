package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	projectDescription string
	deleteYes          bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage test projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		_, err := wb.LoadProjects(cmd.Context())
		return reported(err)
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <project-id> <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return reported(wb.CreateProject(cmd.Context(), args[0], args[1], projectDescription))
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and all of its test cases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes {
			return fmt.Errorf("deleting project %q removes all of its test cases and cannot be undone; pass --yes to confirm", args[0])
		}
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return reported(wb.DeleteProject(cmd.Context(), args[0]))
	},
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")
	projectDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm deletion")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
