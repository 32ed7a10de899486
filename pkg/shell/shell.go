// Package shell implements the interactive workbench REPL. It keeps one
// workbench alive across commands so a recording can be started and
// stopped from the same session.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// Workbench is what the shell drives. *workbench.Workbench implements it.
type Workbench interface {
	State() *session.State
	Results() []api.ExecutionResult

	LoadProjects(ctx context.Context) ([]api.Project, error)
	SelectProject(ctx context.Context, projectID string) ([]api.TestCase, error)
	CreateProject(ctx context.Context, id, name, description string) error
	DeleteProject(ctx context.Context, projectID string) error
	LoadTestCases(ctx context.Context) ([]api.TestCase, error)
	DeleteTestCase(ctx context.Context, testCaseID string) error
	ViewScript(ctx context.Context, testCaseID string) (string, error)
	StartRecording(ctx context.Context, targetURL, testCaseID string) error
	StopRecording(ctx context.Context) error
	RetrySave(ctx context.Context) error
	ExecuteTestCase(ctx context.Context, testCaseID string) (api.ExecutionResult, error)
	ExecuteProject(ctx context.Context) (api.ProjectExecutionSummary, bool, error)
}

var commands = []string{
	"projects", "use", "new", "rmproject",
	"cases", "rm", "script",
	"record", "stop", "save",
	"exec", "exec-project", "results",
	"status", "help", "quit",
}

// Shell provides the REPL.
type Shell struct {
	wb     Workbench
	output io.Writer
	rl     *readline.Instance

	// confirm asks a yes/no question; answers from rl when nil.
	confirm func(question string) bool
}

// New creates a shell writing its own messages to stdout. Workbench output
// goes wherever its renderer writes.
func New(wb Workbench) *Shell {
	return &Shell{wb: wb, output: os.Stdout}
}

// Run starts the REPL loop.
func (s *Shell) Run(ctx context.Context) error {
	var completer = readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		HistoryFile:     historyFile(),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	s.rl = rl
	s.output = rl.Stdout()
	defer rl.Close()

	fmt.Fprintf(s.output, "playrec shell. Type 'help' for available commands.\n")
	_, _ = s.wb.LoadProjects(ctx)

	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if quit := s.Exec(ctx, line); quit {
			return nil
		}
	}
}

// Exec runs one command line. It reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "projects", "ls":
		_, _ = s.wb.LoadProjects(ctx)
	case "use":
		if len(args) != 1 {
			s.usage("use <project>")
			return false
		}
		_, _ = s.wb.SelectProject(ctx, args[0])
	case "new":
		if len(args) < 2 {
			s.usage("new <project-id> <name> [description...]")
			return false
		}
		_ = s.wb.CreateProject(ctx, args[0], args[1], strings.Join(args[2:], " "))
	case "rmproject":
		if len(args) != 1 {
			s.usage("rmproject <project>")
			return false
		}
		if s.ask(fmt.Sprintf("Delete project %q and all of its test cases? This cannot be undone.", args[0])) {
			_ = s.wb.DeleteProject(ctx, args[0])
		}
	case "cases":
		_, _ = s.wb.LoadTestCases(ctx)
	case "rm":
		if len(args) != 1 {
			s.usage("rm <test-case>")
			return false
		}
		if s.ask(fmt.Sprintf("Delete test case %q?", args[0])) {
			_ = s.wb.DeleteTestCase(ctx, args[0])
		}
	case "script", "cat":
		if len(args) != 1 {
			s.usage("script <test-case>")
			return false
		}
		_, _ = s.wb.ViewScript(ctx, args[0])
	case "record":
		if len(args) != 2 {
			s.usage("record <url> <test-case>")
			return false
		}
		_ = s.wb.StartRecording(ctx, args[0], args[1])
	case "stop":
		_ = s.wb.StopRecording(ctx)
	case "save":
		_ = s.wb.RetrySave(ctx)
	case "exec", "x":
		if len(args) != 1 {
			s.usage("exec <test-case>")
			return false
		}
		_, _ = s.wb.ExecuteTestCase(ctx, args[0])
	case "exec-project", "xa":
		_, _, _ = s.wb.ExecuteProject(ctx)
	case "results":
		s.handleResults()
	case "status":
		s.handleStatus()
	case "help", "?":
		s.handleHelp()
	case "quit", "q", "exit":
		fmt.Fprintf(s.output, "Bye.\n")
		return true
	default:
		fmt.Fprintf(s.output, "Unknown command: %q. Type 'help' for available commands.\n", cmd)
	}
	return false
}

func (s *Shell) handleResults() {
	results := s.wb.Results()
	if len(results) == 0 {
		fmt.Fprintf(s.output, "No executions yet.\n")
		return
	}
	for _, r := range results {
		fmt.Fprint(s.output, render.FormatResult(r))
	}
}

func (s *Shell) handleStatus() {
	st := s.wb.State()
	project, ok := st.CurrentProject()
	if !ok {
		project = "(none)"
	}
	fmt.Fprintf(s.output, "project:   %s\n", project)
	rec := st.Recording()
	if rec.Phase == session.PhaseIdle {
		fmt.Fprintf(s.output, "recording: idle\n")
		return
	}
	fmt.Fprintf(s.output, "recording: %s (%s/%s)\n", rec.Phase, rec.ProjectID, rec.TestCaseID)
}

func (s *Shell) handleHelp() {
	fmt.Fprintf(s.output, `Commands:
  projects, ls                 list projects
  use <project>                select a project and list its test cases
  new <id> <name> [desc...]    create a project
  rmproject <project>          delete a project and its test cases
  cases                        list test cases of the selected project
  rm <test-case>               delete a test case
  script, cat <test-case>      show the generated script
  record <url> <test-case>     start recording in a browser
  stop                         stop recording and save it
  save                         retry a failed save
  exec, x <test-case>          execute one test case
  exec-project, xa             execute every test case of the project
  results                      show the last executions
  status                       show the selection and recording state
  help, ?                      show this help
  quit, q                      exit
`)
}

func (s *Shell) usage(u string) {
	fmt.Fprintf(s.output, "Usage: %s\n", u)
}

func (s *Shell) ask(question string) bool {
	if s.confirm != nil {
		return s.confirm(question)
	}
	if s.rl == nil {
		return false
	}
	s.rl.SetPrompt(question + " [y/N] ")
	line, err := s.rl.Readline()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// prompt creates the prompt string: playrec[project | ● test-case]>
func (s *Shell) prompt() string {
	st := s.wb.State()
	project, ok := st.CurrentProject()
	if !ok {
		return "playrec> "
	}
	rec := st.Recording()
	if rec.Phase != session.PhaseIdle {
		return fmt.Sprintf("playrec[%s | %s %s]> ", project, render.GlyphRecord, rec.TestCaseID)
	}
	return fmt.Sprintf("playrec[%s]> ", project)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "playrec_history")
}
