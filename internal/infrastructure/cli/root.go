package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/session"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// globalFlags are shared by the root, nlp and interactive commands.
type globalFlags struct {
	noNLP bool
	mode  string
}

func (g globalFlags) executionMode() (domain.ExecutionMode, error) {
	if g.mode == "" {
		return "", nil
	}
	return domain.ParseExecutionMode(g.mode)
}

// NewRootCmd wires the cobra root command. The returned cleanup closes the
// databases and must run after Execute.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, func() error, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}
	prompter := NewPrompter(nil, nil)
	container.SetConfirmer(prompter)
	container.SetClipboard(NewClipboard())
	if StderrIsTerminal() {
		container.Interpret.Interpreter = WithSpinner(container.Interpret.Interpreter, os.Stderr)
	}
	presenter := NewPresenter(os.Stdout)

	var flags globalFlags
	root := &cobra.Command{
		Use:   "tasq [request]",
		Short: "tasq - tasks and records from the terminal",
		Long: "tasq tracks tasks and records. Use the traditional grammar (task, record, done,\n" +
			"update, delete, list) or describe what you want in plain language.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			mode, err := flags.executionMode()
			if err != nil {
				return err
			}
			return route(cmd.Context(), container, presenter, router.Request{
				Args:   args,
				NoNLP:  flags.noNLP,
				Mode:   mode,
				Config: container.Config,
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Free text may contain dashes; only flags before the first word count.
	root.Flags().SetInterspersed(false)
	root.PersistentFlags().BoolVar(&flags.noNLP, "no-nlp", false, "Force traditional parsing; never call the interpreter")
	root.PersistentFlags().StringVar(&flags.mode, "mode", "", "Execution mode for compound requests (sequential|stop_on_error|continue_on_error|parallel|dependent)")

	for _, action := range domain.Actions() {
		root.AddCommand(newPassthroughCommand(container, presenter, string(action)))
	}
	root.AddCommand(
		newNLPCommand(container, presenter, &flags),
		newInteractiveCommand(container, prompter, &flags),
		commands.NewCacheCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
		commands.NewMCPCommand(container),
	)
	return root, container.Close, nil
}

var passthroughUsage = map[string]string{
	"task":   "task [-c category] <content> [deadline]",
	"record": "record [-c category] <content> [date]",
	"done":   "done <index|content>",
	"update": "update <index|content> [--content c] [--category c] [--deadline d] [--status s]",
	"delete": "delete [<index|content>] [--status s]",
	"list":   "list {task|record|show} [-c category] [--status s] [--days n]",
}

// newPassthroughCommand hands the raw arguments to the router so the
// traditional grammar owns its own flags.
func newPassthroughCommand(container *app.Container, presenter *Presenter, name string) *cobra.Command {
	return &cobra.Command{
		Use:                passthroughUsage[name],
		Short:              "Traditional " + name + " command",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			rest, noNLP, rawMode := stripGlobalFlags(args)
			mode, err := globalFlags{mode: rawMode}.executionMode()
			if err != nil {
				return err
			}
			cfg := container.Config
			return route(cmd.Context(), container, presenter, router.Request{
				Args: append([]string{name}, rest...),
				// Keyword-first fallback needs the free-text path; without it the
				// subcommand is authoritative.
				Traditional: noNLP || !cfg.IsNLPEnabled() || !cfg.NLP.FallbackToTraditional,
				Mode:        mode,
				Config:      cfg,
			})
		},
	}
}

// stripGlobalFlags removes --no-nlp and --mode from a passthrough argument
// list, since flag parsing is disabled there.
func stripGlobalFlags(args []string) (rest []string, noNLP bool, mode string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--no-nlp":
			noNLP = true
		case arg == "--mode" && i+1 < len(args):
			mode = args[i+1]
			i++
		case strings.HasPrefix(arg, "--mode="):
			mode = strings.TrimPrefix(arg, "--mode=")
		default:
			rest = append(rest, arg)
		}
	}
	return rest, noNLP, mode
}

func newNLPCommand(container *app.Container, presenter *Presenter, flags *globalFlags) *cobra.Command {
	var (
		show    bool
		copyCmd bool
	)
	cmd := &cobra.Command{
		Use:   "nlp [--show] [--copy] <description>",
		Short: "Run a plain-language request",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			mode, err := flags.executionMode()
			if err != nil {
				return err
			}
			return route(cmd.Context(), container, presenter, router.Request{
				Args:            args,
				Mode:            mode,
				ForcePreview:    show,
				CopyToClipboard: copyCmd,
				Config:          container.Config,
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&show, "show", false, "Preview the interpreted commands before running them")
	cmd.Flags().BoolVar(&copyCmd, "copy", false, "Copy the interpreted command line to the clipboard")
	cmd.AddCommand(commands.NewNLPConfigCommand(container))
	return cmd
}

func newInteractiveCommand(container *app.Container, prompter *Prompter, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i", "shell"},
		Short:   "Start an interactive session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := flags.executionMode()
			if err != nil {
				return err
			}
			s := &session.Session{
				Router:    container.Router,
				Reader:    LineReaderFor(container.Completer, prompter),
				Presenter: NewPresenter(cmd.OutOrStdout()),
				Completer: container.Completer,
				History:   container.HistoryStore,
				Items:     container.Store,
				Config:    container.Config,
				NoNLP:     flags.noNLP,
				Mode:      mode,
				Logger:    container.Logger,
			}
			_, err = s.Run(cmd.Context())
			return err
		},
	}
}

// route runs one request and renders its outcome.
func route(ctx context.Context, container *app.Container, presenter *Presenter, req router.Request) error {
	outcome, err := container.Router.Route(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			presenter.Notice(err.Error())
			return nil
		}
		return err
	}
	presenter.Outcome(outcome, req.Config.NLP.ShowTransparency)
	if outcome.Summary != nil && !outcome.Summary.IsCompleteSuccess() {
		return fmt.Errorf("%d of %d command(s) failed", outcome.Summary.Failed(), outcome.Summary.Total)
	}
	return nil
}
