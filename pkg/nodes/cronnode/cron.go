// Package cronnode declares the schedule trigger.
package cronnode

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "cron_trigger",
			Name:     "Schedule",
			Kind:     domain.NodeKind_Trigger,
			Category: "cron",
			Config: []domain.ConfigField{
				{Key: "schedule", Label: "Cron Expression", Type: domain.ConfigFieldType_String, Required: true, Help: "Standard five-field cron syntax, e.g. 0 9 * * MON-FRI"},
			},
			Outputs: []domain.IOSlot{{Name: "tick", Type: "object"}},
			Execute: fire,
		},
	}
}

type fireParams struct {
	Schedule string `json:"schedule"`
}

// fire validates the expression and emits the tick metadata. The scheduler
// that calls this on time is an outer surface; a manual run produces the same
// shape.
func fire(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := fireParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	schedule, err := cron.ParseStandard(p.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now().UTC()

	return map[string]any{
		"schedule": p.Schedule,
		"fired_at": now.Format(time.RFC3339),
		"next_run": schedule.Next(now).Format(time.RFC3339),
	}, nil
}
