package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/tasq/assets"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

// Guard implements the GuardService port.
type Guard struct {
	path     string
	patterns []compiledPattern
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guard rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
	Action  string `yaml:"action"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// DefaultRulesPath is ~/.tasq/guard.yaml.
func DefaultRulesPath() string {
	return filepath.Join(filesystem.DataDir(), "guard.yaml")
}

// NewGuard loads rules from path, or the embedded defaults when the file
// does not exist or holds no rules.
func NewGuard(path string) (*Guard, error) {
	if path == "" {
		path = DefaultRulesPath()
	}
	path = filesystem.ExpandPath(path)

	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledPattern, 0, len(rules.Rules.DangerPatterns))
	for _, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("guard rule %q: %w", pattern.Pattern, err)
		}
		compiled = append(compiled, compiledPattern{re: re, rule: pattern})
	}

	return &Guard{path: path, patterns: compiled}, nil
}

// Evaluate matches the joined argument vector against every rule. The most
// severe match decides level and action; all matches contribute reasons.
func (g *Guard) Evaluate(args []string) (domain.RiskAssessment, error) {
	if g == nil {
		return domain.RiskAssessment{}, errors.New("guard nil")
	}
	command := strings.Join(args, " ")
	assessment := domain.RiskAssessment{
		Level:  domain.RiskSafe,
		Action: domain.GuardAllow,
	}
	highest := domain.RiskSafe
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(command) {
			continue
		}
		ruleLevel := parseRiskLevel(pattern.rule.Level)
		if moreSevere(ruleLevel, highest) {
			highest = ruleLevel
			assessment.Level = ruleLevel
			assessment.Action = parseAction(pattern.rule.Action, ruleLevel)
		}
		assessment.Reasons = append(assessment.Reasons, pattern.rule.Message)
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}
	return assessment, nil
}

// RuleCount reports how many rules are active.
func (g *Guard) RuleCount() int {
	return len(g.patterns)
}

// Path is the rules file consulted, whether or not it exists.
func (g *Guard) Path() string {
	return g.path
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return RulesFile{}, fmt.Errorf("read guard rules: %w", err)
		}
		data = assets.DefaultGuardYAML
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parse guard rules: %w", err)
	}
	if len(rules.Rules.DangerPatterns) == 0 {
		if err := yaml.Unmarshal(assets.DefaultGuardYAML, &rules); err != nil {
			return RulesFile{}, fmt.Errorf("parse default guard rules: %w", err)
		}
	}
	return rules, nil
}

func parseRiskLevel(value string) domain.RiskLevel {
	switch strings.ToLower(value) {
	case "low":
		return domain.RiskLow
	case "medium":
		return domain.RiskMedium
	case "high":
		return domain.RiskHigh
	case "critical":
		return domain.RiskCritical
	default:
		return domain.RiskSafe
	}
}

func parseAction(value string, fallback domain.RiskLevel) domain.GuardAction {
	switch strings.ToLower(value) {
	case "allow":
		return domain.GuardAllow
	case "confirm":
		return domain.GuardConfirm
	case "explicit_confirm":
		return domain.GuardExplicitConfirm
	case "block":
		return domain.GuardBlock
	default:
		if fallback == domain.RiskSafe {
			return domain.GuardAllow
		}
		return domain.GuardConfirm
	}
}

func moreSevere(next domain.RiskLevel, current domain.RiskLevel) bool {
	order := map[domain.RiskLevel]int{
		domain.RiskSafe:     0,
		domain.RiskLow:      1,
		domain.RiskMedium:   2,
		domain.RiskHigh:     3,
		domain.RiskCritical: 4,
	}
	return order[next] > order[current]
}

var _ ports.GuardService = (*Guard)(nil)
