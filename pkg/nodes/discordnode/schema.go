// Package discordnode declares the Discord guild and messaging nodes.
package discordnode

import (
	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "discord"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "discord_send_message",
			Name:     "Send Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "content", Label: "Message Content", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Outputs: []domain.IOSlot{{Name: "message", Type: "object"}},
			Execute: sendMessage,
		},
		{
			ID:       "discord_edit_message",
			Name:     "Edit Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "message_id", Label: "Message", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "content", Label: "New Content", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: editMessage,
		},
		{
			ID:       "discord_delete_message",
			Name:     "Delete Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel_id", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "message_id", Label: "Message", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: deleteMessage,
		},
		{
			ID:       "discord_create_channel",
			Name:     "Create Channel",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "guild_id", Label: "Server", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "name", Label: "Channel Name", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: createChannel,
		},
		{
			ID:       "discord_add_role",
			Name:     "Add Role to Member",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "guild_id", Label: "Server", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "user_id", Label: "User", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "role_id", Label: "Role", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: addRole,
		},
		{
			ID:       "discord_remove_role",
			Name:     "Remove Role from Member",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "guild_id", Label: "Server", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "user_id", Label: "User", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "role_id", Label: "Role", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: removeRole,
		},
		{
			ID:       "discord_get_guild_members",
			Name:     "Get Server Members",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "guild_id", Label: "Server", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "limit", Label: "Limit", Type: domain.ConfigFieldType_Integer, Default: 100},
			},
			Execute: getGuildMembers,
		},
	}
}
