package interpreter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/tasq/internal/domain"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  MatchKind
		want  domain.StructuredCommand
	}{
		{name: "add task", input: "add task buy milk", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionTask, Content: "buy milk"}},
		{name: "bare task", input: "Task call mom", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionTask, Content: "call mom"}},
		{name: "log record", input: "log ran 5k", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionRecord, Content: "ran 5k"}},
		{name: "complete with hash", input: "finish #12", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionDone, Content: "12"}},
		{name: "delete", input: "del 3", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionDelete, Content: "3"}},
		{name: "ls", input: "LS", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList}},
		{name: "records", input: "show records", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Filters: map[string]string{"type": "record"}}},
		{name: "category listing", input: "show work tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Category: "work"}},
		{name: "status listing skips category rule", input: "list pending tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Status: domain.StatusPending}},
		{name: "query", input: "due this week", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, QueryType: domain.QueryDueThisWeek}},
		{name: "overdue tasks is a query not a category", input: "overdue tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, QueryType: domain.QueryOverdue}},
		{name: "update with content", input: "edit 2 call the bank", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionUpdate, Content: "2", Modifications: map[string]string{"content": "call the bank"}}},
		{name: "update without content", input: "update 2", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionUpdate, Content: "2"}},
		{name: "search", input: "search dentist", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Search: "dentist"}},
		{name: "priority", input: "High priority tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Filters: map[string]string{"priority": "high"}}},
		{name: "today's tasks", input: "today's tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, QueryType: domain.QueryDueToday}},
		{name: "yesterday maps to overdue", input: "yesterday's tasks", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, QueryType: domain.QueryOverdue}},
		{name: "set category", input: "set groceries category to home", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionUpdate, Content: "groceries", Modifications: map[string]string{"category": "home"}}},
		{name: "bare number", input: "#7", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionList, Content: "7", Filters: map[string]string{"id": "7"}}},
		{name: "add anything", input: "add water the plants", kind: MatchFound,
			want: domain.StructuredCommand{Action: domain.ActionTask, Content: "water the plants"}},
		{name: "help", input: "what can i do", kind: MatchAmbiguous},
		{name: "clear", input: "clear all tasks", kind: MatchAmbiguous},
		{name: "deadline goes to model", input: "add task report with deadline friday", kind: MatchNeedsModel},
		{name: "recurring goes to model", input: "add task stretch every day", kind: MatchNeedsModel},
		{name: "category suffix goes to model", input: "move the milk task to shopping category", kind: MatchNeedsModel},
		{name: "free text", input: "remind me to call the plumber", kind: MatchNeedsModel},
		{name: "empty", input: "   ", kind: MatchNeedsModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchPattern(tt.input)
			if got.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind != MatchFound {
				return
			}
			tt.want.Source = domain.SourcePattern
			if diff := cmp.Diff(tt.want, got.Command); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchPattern_AmbiguousMessages(t *testing.T) {
	if got := MatchPattern("help").Message; got != "Help requested - showing available commands" {
		t.Errorf("help message = %q", got)
	}
	if got := MatchPattern("reset").Message; got != "Clear all tasks? Confirm with 'yes'" {
		t.Errorf("clear message = %q", got)
	}
}

func TestPatternsMatchTheirExamples(t *testing.T) {
	for _, p := range Patterns() {
		if got := MatchPattern(p.Example); got.Kind == MatchNeedsModel {
			t.Errorf("example %q for %q did not match any rule", p.Example, p.Name)
		}
	}
}

func TestKeywordFallback(t *testing.T) {
	tests := []struct {
		input string
		want  domain.ActionType
	}{
		{"ADD a TASK", domain.ActionTask},
		{"delete old task", domain.ActionTask},
		{"record my weight", domain.ActionRecord},
		{"mark as done and list others", domain.ActionDone},
		{"SHOW ITEMS", domain.ActionList},
		{"remove item", domain.ActionDelete},
		{"change priority", domain.ActionUpdate},
		{"something random", domain.ActionTask},
		{"", domain.ActionTask},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := KeywordFallback(tt.input)
			if got.Action != tt.want {
				t.Errorf("action = %q, want %q", got.Action, tt.want)
			}
			if got.Content != tt.input {
				t.Errorf("content = %q, want input preserved", got.Content)
			}
			if got.Source != domain.SourceKeyword {
				t.Errorf("source = %q", got.Source)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     domain.StructuredCommand
		wantErr bool
	}{
		{name: "task ok", cmd: domain.StructuredCommand{Action: domain.ActionTask, Content: "x"}},
		{name: "task empty", cmd: domain.StructuredCommand{Action: domain.ActionTask, Content: " "}, wantErr: true},
		{name: "update without target", cmd: domain.StructuredCommand{Action: domain.ActionUpdate}, wantErr: true},
		{name: "list without content", cmd: domain.StructuredCommand{Action: domain.ActionList}},
		{name: "unknown action", cmd: domain.StructuredCommand{Action: "archive", Content: "x"}, wantErr: true},
		{name: "bad status", cmd: domain.StructuredCommand{Action: domain.ActionList, Status: "sleeping"}, wantErr: true},
		{name: "negative limit", cmd: domain.StructuredCommand{Action: domain.ActionList, Limit: domain.IntPtr(-1)}, wantErr: true},
		{
			name: "compound member invalid",
			cmd: domain.StructuredCommand{Action: domain.ActionNLP, Compound: []domain.StructuredCommand{
				{Action: domain.ActionTask, Content: "a"},
				{Action: domain.ActionDone},
			}},
			wantErr: true,
		},
		{
			name: "compound container action is not checked",
			cmd: domain.StructuredCommand{Action: domain.ActionNLP, Compound: []domain.StructuredCommand{
				{Action: domain.ActionTask, Content: "a"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMatchPattern_Conditional(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.StructuredCommand
	}{
		{
			name:  "category has tasks",
			input: "if work has tasks then show work tasks",
			want: domain.StructuredCommand{Action: domain.ActionList, Category: "work",
				Condition: &domain.Condition{Kind: domain.ConditionCategoryHasTasks, Category: "work"}},
		},
		{
			name:  "category empty with comma",
			input: "If Shopping is empty, add task plan meals",
			want: domain.StructuredCommand{Action: domain.ActionTask, Content: "plan meals",
				Condition: &domain.Condition{Kind: domain.ConditionCategoryEmpty, Category: "shopping"}},
		},
		{
			name:  "word operator",
			input: "if task count is more than 5 then overdue tasks",
			want: domain.StructuredCommand{Action: domain.ActionList, QueryType: domain.QueryOverdue,
				Condition: &domain.Condition{Kind: domain.ConditionTaskCount, Operator: ">", Value: 5}},
		},
		{
			name:  "days",
			input: "if today is mon or fri then call the team",
			want: domain.StructuredCommand{Action: domain.ActionTask, Content: "call the team",
				Condition: &domain.Condition{Kind: domain.ConditionDayOfWeek, Days: []string{"Monday", "Friday"}}},
		},
		{
			name:  "weekend",
			input: "if it's a weekend then log slept in",
			want: domain.StructuredCommand{Action: domain.ActionRecord, Content: "slept in",
				Condition: &domain.Condition{Kind: domain.ConditionDayOfWeek, Days: []string{"weekend"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchPattern(tt.input)
			if got.Kind != MatchFound {
				t.Fatalf("kind = %v, want MatchFound", got.Kind)
			}
			tt.want.Source = domain.SourcePattern
			if diff := cmp.Diff(tt.want, got.Command); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchPattern_ConditionalRejects(t *testing.T) {
	for _, input := range []string{
		"if i have time then call mom",
		"if today is someday then rest",
		"if work is empty then clear all tasks",
		"if work is empty then if home is empty then rest",
	} {
		if got := MatchPattern(input); got.Kind == MatchFound && got.Command.Condition != nil {
			t.Errorf("%q produced a conditional command: %+v", input, got.Command)
		}
	}
}
