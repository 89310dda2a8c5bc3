/*
projects.go - Broker options and form autofill from past projects

PURPOSE:
  Projects double as the address book for brokers. The transaction and
  project forms offer the known broker names and prefill their fields
  from the most recent matching project.

MATCHING:
  Broker and project names are trimmed and compared case-insensitively.
  "Most recent" orders by createdAt, falling back to the project date for
  records without one. On a tie the earlier record in the list wins.

SEE ALSO:
  - api/handlers.go: /projects/brokers and /projects/autofill
*/
package finance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

func recencyKey(p Project) string {
	if !p.CreatedAt.IsZero() {
		return p.CreatedAt.UTC().Format(isoMillis)
	}
	return p.Date
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// LatestProject returns the most recent project that matches.
func LatestProject(projects []Project, match func(Project) bool) (Project, bool) {
	var best Project
	found := false
	for _, p := range projects {
		if !match(p) {
			continue
		}
		if !found || recencyKey(p) > recencyKey(best) {
			best = p
			found = true
		}
	}
	return best, found
}

func LatestForBroker(projects []Project, broker string) (Project, bool) {
	if strings.TrimSpace(broker) == "" {
		return Project{}, false
	}
	return LatestProject(projects, func(p Project) bool { return sameName(p.Broker, broker) })
}

func LatestForBrokerProject(projects []Project, broker, name string) (Project, bool) {
	if strings.TrimSpace(broker) == "" || strings.TrimSpace(name) == "" {
		return Project{}, false
	}
	return LatestProject(projects, func(p Project) bool {
		return sameName(p.Broker, broker) && sameName(p.Name, name)
	})
}

// =============================================================================
// AUTOFILL
// =============================================================================

// ProjectDefaults prefill a new project for a known broker.
type ProjectDefaults struct {
	Type              ProjectType     `json:"projectType"`
	TotalMonthlyHours decimal.Decimal `json:"totalMonthlyHours"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	RecruiterName     string          `json:"recruiterName"`
	BrokerageType     BrokerageType   `json:"brokerageType"`
	BrokerageValue    decimal.Decimal `json:"brokerageValue"`
}

// TransactionDefaults prefill a new transaction for a broker and project.
type TransactionDefaults struct {
	BrokerageType  BrokerageType   `json:"brokerageType"`
	BrokerageValue decimal.Decimal `json:"brokerageValue"`
}

func brokerageTypeOrDefault(b BrokerageType) BrokerageType {
	if b == "" {
		return BrokeragePercentage
	}
	return b
}

func ProjectAutofill(projects []Project, broker string) (ProjectDefaults, bool) {
	p, ok := LatestForBroker(projects, broker)
	if !ok {
		return ProjectDefaults{}, false
	}
	return ProjectDefaults{
		Type:              p.Type,
		TotalMonthlyHours: p.TotalMonthlyHours,
		HourlyRate:        p.HourlyRate,
		RecruiterName:     p.RecruiterName,
		BrokerageType:     brokerageTypeOrDefault(p.BrokerageType),
		BrokerageValue:    p.BrokerageValue,
	}, true
}

func TransactionAutofill(projects []Project, broker, name string) (TransactionDefaults, bool) {
	p, ok := LatestForBrokerProject(projects, broker, name)
	if !ok {
		return TransactionDefaults{}, false
	}
	return TransactionDefaults{
		BrokerageType:  brokerageTypeOrDefault(p.BrokerageType),
		BrokerageValue: p.BrokerageValue,
	}, true
}

// =============================================================================
// OPTIONS
// =============================================================================

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// BrokerOptions lists the distinct broker names.
func BrokerOptions(projects []Project) []string {
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Broker
	}
	return uniqueSorted(names)
}

// ProjectOptions lists the distinct project names for a broker.
func ProjectOptions(projects []Project, broker string) []string {
	var names []string
	for _, p := range projects {
		if sameName(p.Broker, broker) {
			names = append(names, p.Name)
		}
	}
	return uniqueSorted(names)
}
