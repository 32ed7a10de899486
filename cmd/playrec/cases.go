package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/playrec/pkg/api"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage the test cases of a project (requires --project)",
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List test cases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		_, err := wb.SelectProject(cmd.Context(), flagProject)
		return reported(err)
	},
}

var caseDeleteCmd = &cobra.Command{
	Use:   "delete <test-case>",
	Short: "Delete a test case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes {
			return fmt.Errorf("pass --yes to delete test case %q", args[0])
		}
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return reported(wb.DeleteTestCase(cmd.Context(), args[0]))
	},
}

var caseScriptCmd = &cobra.Command{
	Use:   "script <test-case>",
	Short: "Print the generated script of a test case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		_, err := wb.ViewScript(cmd.Context(), args[0])
		return reported(err)
	},
}

// --- exec ---

var execCmd = &cobra.Command{
	Use:   "exec <test-case>",
	Short: "Execute one test case of the project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		res, err := wb.ExecuteTestCase(cmd.Context(), args[0])
		if err != nil {
			return reported(err)
		}
		if res.Status != api.StatusSuccess {
			return reported(errors.New("test case failed"))
		}
		return nil
	},
}

var execProjectCmd = &cobra.Command{
	Use:   "exec-project",
	Short: "Execute every test case of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		_, favorable, err := wb.ExecuteProject(cmd.Context())
		if err != nil {
			return reported(err)
		}
		if !favorable {
			return reported(errors.New("project execution not favorable"))
		}
		return nil
	},
}

func init() {
	caseDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm deletion")

	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseDeleteCmd)
	caseCmd.AddCommand(caseScriptCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(execProjectCmd)
}
