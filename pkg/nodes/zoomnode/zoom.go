// Package zoomnode declares the Zoom meeting nodes. Access tokens come from
// the resolver's server-to-server client-credentials exchange.
package zoomnode

import (
	"context"
	"fmt"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const (
	serviceName = "zoom"
	apiBase     = "https://api.zoom.us/v2"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "zoom_create_meeting",
			Name:     "Create Meeting",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "topic", Label: "Topic", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "start_time", Label: "Start Time", Type: domain.ConfigFieldType_String, Help: "ISO 8601, e.g. 2026-09-01T15:00:00Z; omit for an instant meeting"},
				{Key: "duration", Label: "Duration (minutes)", Type: domain.ConfigFieldType_Integer, Default: 30},
				{Key: "agenda", Label: "Agenda", Type: domain.ConfigFieldType_Text},
			},
			Execute: createMeeting,
		},
		{
			ID:       "zoom_list_meetings",
			Name:     "List Meetings",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "type", Label: "Type", Type: domain.ConfigFieldType_Select, Default: "upcoming", Options: []domain.ConfigOption{
					{Label: "Upcoming", Value: "upcoming"},
					{Label: "Scheduled", Value: "scheduled"},
					{Label: "Live", Value: "live"},
				}},
			},
			Execute: listMeetings,
		},
	}
}

func bearerHeaders(ctx context.Context, ec *domain.ExecutionContext) (map[string]string, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return map[string]string{"Authorization": "Bearer " + credential.Token}, nil
}

type createMeetingParams struct {
	Topic     string `json:"topic"`
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Agenda    string `json:"agenda,omitempty"`
}

func createMeeting(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createMeetingParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	headers, err := bearerHeaders(ctx, ec)
	if err != nil {
		return nil, err
	}

	// Type 1 is an instant meeting, type 2 a scheduled one.
	meetingType := 1
	if p.StartTime != "" {
		meetingType = 2
	}

	body := map[string]any{
		"topic": p.Topic,
		"type":  meetingType,
	}
	if p.StartTime != "" {
		body["start_time"] = p.StartTime
	}
	if p.Duration > 0 {
		body["duration"] = p.Duration
	}
	if p.Agenda != "" {
		body["agenda"] = p.Agenda
	}

	response, err := ec.HTTP.Post(ctx, apiBase+"/users/me/meetings", body, headers)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"meeting_id": response["id"],
		"topic":      response["topic"],
		"join_url":   response["join_url"],
		"start_url":  response["start_url"],
		"start_time": response["start_time"],
	}, nil
}

type listMeetingsParams struct {
	Type string `json:"type,omitempty"`
}

func listMeetings(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listMeetingsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		p.Type = "upcoming"
	}

	headers, err := bearerHeaders(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := ec.HTTP.Get(ctx, fmt.Sprintf("%s/users/me/meetings?type=%s", apiBase, p.Type), headers)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"meetings": response["meetings"],
		"total":    response["total_records"],
	}, nil
}
