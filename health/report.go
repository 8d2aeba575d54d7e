package health

import (
	"context"
	"time"
)

// Report is the JSON document printed by the check command.
type Report struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Checks    []CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of a single Result.
type CheckReport struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report runs every checker and builds a report in registration order.
func (a *Aggregator) Report(ctx context.Context) Report {
	results := a.CheckAll(ctx)

	report := Report{
		Status:    a.OverallStatus(results).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, name := range a.CheckerNames() {
		result, ok := results[name]
		if !ok {
			continue
		}
		check := CheckReport{
			Name:     name,
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			check.Error = result.Error.Error()
		}
		report.Checks = append(report.Checks, check)
	}

	return report
}

// Healthy reports whether no check was unhealthy.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy.String()
}
