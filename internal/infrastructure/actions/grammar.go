package actions

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/domain"
)

// Invocation is one parsed traditional command.
type Invocation struct {
	Action domain.ActionType

	Content  string
	Category string
	TimeStr  string

	// Target addresses an existing item: a 1-based index from the last
	// listing or a content fragment.
	Target     string
	Status     domain.StatusType
	StatusSet  bool
	Comment    string
	NewContent string
	AddContent string

	ListKind      domain.ItemKind
	ShowIndex     int
	Days          int
	Limit         int
	Search        string
	Overdue       bool
	NoDeadline    bool
	TargetTimeMin string
	TargetTimeMax string
}

// Keywords are the first words that select a traditional subcommand.
func Keywords() []string {
	return []string{"task", "record", "done", "update", "delete", "list"}
}

// IsKeyword reports whether word starts a traditional command.
func IsKeyword(word string) bool {
	word = strings.ToLower(word)
	for _, k := range Keywords() {
		if k == word {
			return true
		}
	}
	return false
}

// Parse runs args through the traditional grammar.
func Parse(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, &domain.ParseError{Reason: "no command given"}
	}
	var inv Invocation
	root := newGrammar(&inv)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		return Invocation{}, &domain.ParseError{Input: strings.Join(args, " "), Reason: err.Error()}
	}
	if inv.Action == "" {
		return Invocation{}, &domain.ParseError{Input: strings.Join(args, " "), Reason: "unknown command"}
	}
	return inv, nil
}

func newGrammar(inv *Invocation) *cobra.Command {
	root := &cobra.Command{
		Use:           "tasq",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          func(*cobra.Command, []string) error { return fmt.Errorf("a subcommand is required") },
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		taskGrammar(inv),
		recordGrammar(inv),
		doneGrammar(inv),
		updateGrammar(inv),
		deleteGrammar(inv),
		listGrammar(inv),
	)
	return root
}

func taskGrammar(inv *Invocation) *cobra.Command {
	cmd := &cobra.Command{
		Use:  "task <content> [timestr]",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := syntaxHelper("task", args[0]); err != nil {
				return err
			}
			inv.Action = domain.ActionTask
			inv.Content = args[0]
			if len(args) == 2 {
				inv.TimeStr = args[1]
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inv.Category, "category", "c", "", "category of the task")
	return cmd
}

func recordGrammar(inv *Invocation) *cobra.Command {
	cmd := &cobra.Command{
		Use:  "record <content>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := syntaxHelper("record", args[0]); err != nil {
				return err
			}
			inv.Action = domain.ActionRecord
			inv.Content = args[0]
			return nil
		},
	}
	cmd.Flags().StringVarP(&inv.Category, "category", "c", "", "category of the record")
	cmd.Flags().StringVarP(&inv.TimeStr, "time", "t", "", "time the record is made, default now")
	return cmd
}

func doneGrammar(inv *Invocation) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:  "done <index|content>",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Action = domain.ActionDone
			inv.Target = strings.Join(args, " ")
			inv.Status = domain.StatusDone
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				inv.Status = st
			}
			return validateTarget(inv.Target)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "closing status, default done")
	cmd.Flags().StringVar(&inv.Comment, "comment", "", "comment added to the task")
	return cmd
}

func updateGrammar(inv *Invocation) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:  "update <index|content>",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Action = domain.ActionUpdate
			inv.Target = strings.Join(args, " ")
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				inv.Status = st
				inv.StatusSet = true
			}
			if inv.NewContent == "" && inv.AddContent == "" && inv.Category == "" && inv.TimeStr == "" && !inv.StatusSet {
				return fmt.Errorf("nothing to update: pass --content, --category, --deadline or --status")
			}
			return validateTarget(inv.Target)
		},
	}
	cmd.Flags().StringVarP(&inv.NewContent, "content", "w", "", "replace the content")
	cmd.Flags().StringVarP(&inv.AddContent, "add-content", "a", "", "append a line to the content")
	cmd.Flags().StringVarP(&inv.Category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&inv.TimeStr, "deadline", "t", "", "new target time")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	return cmd
}

func deleteGrammar(inv *Invocation) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:  "delete [index|content]",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Action = domain.ActionDelete
			inv.Target = strings.Join(args, " ")
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				inv.Status = st
				inv.StatusSet = true
			}
			if inv.Target == "" {
				return nil
			}
			return validateTarget(inv.Target)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "restrict bulk deletion to this status")
	return cmd
}

func listGrammar(inv *Invocation) *cobra.Command {
	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("list needs a target: task, record or show")
		},
	}

	var taskStatus string
	task := &cobra.Command{
		Use:     "task [timestr]",
		Aliases: []string{"tasks"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Action = domain.ActionList
			inv.ListKind = domain.KindTask
			if len(args) == 1 {
				inv.TimeStr = args[0]
			}
			inv.Status = domain.StatusOpen
			if taskStatus != "" {
				st, err := parseStatus(taskStatus)
				if err != nil {
					return err
				}
				inv.Status = st
				inv.StatusSet = true
			}
			if inv.TimeStr != "" && inv.Days > 0 {
				return fmt.Errorf("--days cannot be combined with a time string")
			}
			return validateLimit(inv.Limit)
		},
	}
	task.Flags().StringVarP(&inv.Category, "category", "c", "", "category of the task")
	task.Flags().IntVarP(&inv.Days, "days", "d", 0, "days ahead to list")
	task.Flags().StringVarP(&taskStatus, "status", "s", "", "ongoing|done|cancelled|duplicate|suspended|pending|open|closed|all")
	task.Flags().BoolVarP(&inv.Overdue, "overdue", "o", false, "only tasks past their target time")
	task.Flags().IntVarP(&inv.Limit, "limit", "l", 100, "limit the amount of tasks returned")
	task.Flags().StringVar(&inv.Search, "search", "", "search task content")
	task.Flags().StringVar(&inv.TargetTimeMin, "target-time-min", "", "earliest target time")
	task.Flags().StringVar(&inv.TargetTimeMax, "target-time-max", "", "latest target time")
	task.Flags().BoolVar(&inv.NoDeadline, "no-deadline", false, "only tasks without a target time")

	record := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Action = domain.ActionList
			inv.ListKind = domain.KindRecord
			return validateLimit(inv.Limit)
		},
	}
	record.Flags().StringVarP(&inv.Category, "category", "c", "", "category of the record")
	record.Flags().IntVarP(&inv.Days, "days", "d", 0, "days of records to retrieve")
	record.Flags().IntVarP(&inv.Limit, "limit", "l", 100, "limit the amount of records returned")
	record.Flags().StringVar(&inv.Search, "search", "", "search record content")

	show := &cobra.Command{
		Use:  "show <index>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			inv.Action = domain.ActionList
			inv.ShowIndex = idx
			return nil
		},
	}

	list.AddCommand(task, record, show)
	return list
}

func syntaxHelper(cmd, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s content cannot be empty", cmd)
	}
	switch s {
	case "list":
		return fmt.Errorf("Do you mean 'list %s' instead of '%s list'", cmd, cmd)
	case "help":
		return fmt.Errorf("Do you mean --help instead of help")
	}
	return nil
}

func parseStatus(s string) (domain.StatusType, error) {
	switch strings.ToLower(s) {
	case "removed", "remove", "unneeded", "unnecessary":
		return domain.StatusRemoved, nil
	}
	if st, ok := domain.ParseStatusType(s); ok {
		return st, nil
	}
	if code, err := strconv.Atoi(s); err == nil {
		if st, ok := domain.StatusFromCode(code); ok {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: expected ongoing|done|cancelled|duplicate|suspended|removed|pending|open|closed|all", s)
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil {
		return 0, fmt.Errorf("Index must be a number")
	}
	if idx < domain.MinItemIndex {
		return 0, fmt.Errorf("Index must be greater than 0")
	}
	if idx > domain.MaxItemIndex {
		return 0, fmt.Errorf("Index cannot exceed %d", domain.MaxItemIndex)
	}
	return idx, nil
}

// validateTarget applies index bounds when the target is numeric.
func validateTarget(target string) error {
	if _, err := strconv.Atoi(strings.TrimPrefix(target, "#")); err != nil {
		return nil
	}
	_, err := parseIndex(target)
	return err
}

func validateLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("Limit cannot be less than 1")
	}
	if limit > domain.MaxItemIndex {
		return fmt.Errorf("Limit cannot exceed %d", domain.MaxItemIndex)
	}
	return nil
}
