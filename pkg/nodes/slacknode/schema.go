// Package slacknode declares the Slack workspace nodes.
package slacknode

import (
	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "slack"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "slack_send_message",
			Name:     "Send Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "text", Label: "Message Text", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "thread_ts", Label: "Thread Timestamp", Type: domain.ConfigFieldType_String, Help: "Reply in the given thread instead of posting to the channel"},
			},
			Outputs: []domain.IOSlot{{Name: "message", Type: "object"}},
			Execute: sendMessage,
		},
		{
			ID:       "slack_update_message",
			Name:     "Update Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "ts", Label: "Message Timestamp", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "text", Label: "New Text", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: updateMessage,
		},
		{
			ID:       "slack_delete_message",
			Name:     "Delete Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "ts", Label: "Message Timestamp", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: deleteMessage,
		},
		{
			ID:       "slack_create_channel",
			Name:     "Create Channel",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "name", Label: "Channel Name", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "is_private", Label: "Private", Type: domain.ConfigFieldType_Boolean, Default: false},
			},
			Execute: createChannel,
		},
		{
			ID:       "slack_archive_channel",
			Name:     "Archive Channel",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: archiveChannel,
		},
		{
			ID:       "slack_invite_users",
			Name:     "Invite Users to Channel",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "user_ids", Label: "Users", Type: domain.ConfigFieldType_Array, Required: true},
			},
			Execute: inviteUsers,
		},
		{
			ID:       "slack_upload_file",
			Name:     "Upload File",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "filename", Label: "Filename", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "content", Label: "File Content", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String},
			},
			Execute: uploadFile,
		},
		{
			ID:       "slack_add_reaction",
			Name:     "Add Reaction",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "ts", Label: "Message Timestamp", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "emoji", Label: "Emoji Name", Type: domain.ConfigFieldType_String, Required: true, Help: "Emoji name without colons, e.g. thumbsup"},
			},
			Execute: addReaction,
		},
	}
}
