package interpreter

import (
	"fmt"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
)

// Validate checks a command, or every member of a compound command, before
// it leaves the interpreter.
func Validate(cmd domain.StructuredCommand) error {
	if cmd.IsCompound() {
		for i, child := range cmd.Flatten() {
			if err := validateOne(child); err != nil {
				return fmt.Errorf("command %d: %w", i+1, err)
			}
		}
		return nil
	}
	return validateOne(cmd)
}

func validateOne(cmd domain.StructuredCommand) error {
	switch cmd.Action {
	case domain.ActionTask, domain.ActionRecord, domain.ActionDone:
		if strings.TrimSpace(cmd.Content) == "" {
			return fmt.Errorf("%s needs content", cmd.Action)
		}
	case domain.ActionUpdate:
		if strings.TrimSpace(cmd.Content) == "" {
			return fmt.Errorf("update needs a target")
		}
	case domain.ActionList, domain.ActionDelete:
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}

	if cmd.Status != "" {
		if _, ok := domain.ParseStatusType(string(cmd.Status)); !ok {
			return fmt.Errorf("unknown status %q", cmd.Status)
		}
	}
	if cmd.QueryType != "" {
		if _, ok := domain.ParseQueryType(string(cmd.QueryType)); !ok {
			return fmt.Errorf("unknown query type %q", cmd.QueryType)
		}
	}
	if cmd.Days != nil && *cmd.Days < 0 {
		return fmt.Errorf("days must not be negative")
	}
	if cmd.Limit != nil && *cmd.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}
