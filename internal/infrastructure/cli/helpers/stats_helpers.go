package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// CalculateTopCommands returns the top N most frequently used commands
// If limit is 0 or negative, returns all commands
func CalculateTopCommands(commandFrequency map[string]int, limit int) []CommandStatistic {
	stats := convertFrequencyMapToStatistics(commandFrequency)
	sortStatisticsByFrequency(stats)

	if shouldLimitResults(limit, len(stats)) {
		return stats[:limit]
	}
	return stats
}

// convertFrequencyMapToStatistics converts a map to a slice of CommandStatistic
func convertFrequencyMapToStatistics(frequency map[string]int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(frequency))
	for cmd, count := range frequency {
		stats = append(stats, CommandStatistic{
			Command: cmd,
			Count:   count,
		})
	}
	return stats
}

// sortStatisticsByFrequency sorts statistics by count (descending) then by command name (ascending)
func sortStatisticsByFrequency(stats []CommandStatistic) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})
}

// shouldLimitResults checks if we should limit the results based on the limit and actual length
func shouldLimitResults(limit int, actualLength int) bool {
	return limit > 0 && actualLength > limit
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

// ActionFrequency counts how often each action verb appears across the
// mapped command lines of records. Compound lines are split on "; ".
func ActionFrequency(records []domain.HistoryRecord) map[string]int {
	freq := make(map[string]int)
	for _, rec := range records {
		for _, part := range strings.Split(rec.Command, "; ") {
			if fields := strings.Fields(part); len(fields) > 0 {
				freq[fields[0]]++
			}
		}
	}
	return freq
}
