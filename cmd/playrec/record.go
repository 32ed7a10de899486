package main

import (
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a test case in a browser (requires --project)",
	Long: `Record a test case in a browser.

"record start" opens the browser through the recorder backend and returns.
Interact with the page, then run "record stop" with the same test case id
to stop recording and save it. Use "record save" if the save step failed.
The shell keeps one session across commands and needs no ids after start.`,
}

var recordStartCmd = &cobra.Command{
	Use:   "start <url> <test-case>",
	Short: "Start recording",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return reported(wb.StartRecording(cmd.Context(), args[0], args[1]))
	},
}

var recordStopCmd = &cobra.Command{
	Use:   "stop <test-case>",
	Short: "Stop recording and save the test case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		if err := wb.Recorder().Adopt(args[0]); err != nil {
			return reported(err)
		}
		return reported(wb.StopRecording(cmd.Context()))
	},
}

var recordSaveCmd = &cobra.Command{
	Use:   "save <test-case>",
	Short: "Save a stopped recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return reported(wb.Recorder().Save(cmd.Context(), args[0]))
	},
}

func init() {
	recordCmd.AddCommand(recordStartCmd)
	recordCmd.AddCommand(recordStopCmd)
	recordCmd.AddCommand(recordSaveCmd)
	rootCmd.AddCommand(recordCmd)
}
