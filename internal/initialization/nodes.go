package initialization

import (
	"github.com/nodeloom/nodeloom/pkg/nodes/anthropicnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/base64node"
	"github.com/nodeloom/nodeloom/pkg/nodes/conditionnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/cronnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/discordnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/drivenode"
	"github.com/nodeloom/nodeloom/pkg/nodes/githubnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/gitlabnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/gmailnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/httpnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/jiranode"
	"github.com/nodeloom/nodeloom/pkg/nodes/jwtnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/linearnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/mongonode"
	"github.com/nodeloom/nodeloom/pkg/nodes/openainode"
	"github.com/nodeloom/nodeloom/pkg/nodes/postgresnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/redisnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/resendnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/sheetsnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/slacknode"
	"github.com/nodeloom/nodeloom/pkg/nodes/stripenode"
	"github.com/nodeloom/nodeloom/pkg/nodes/telegramnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/transformnode"
	"github.com/nodeloom/nodeloom/pkg/nodes/twilionode"
	"github.com/nodeloom/nodeloom/pkg/nodes/validatenode"
	"github.com/nodeloom/nodeloom/pkg/nodes/zoomnode"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// BuildNodeRegistry assembles the full node catalogue. The registry
// constructor rejects duplicate ids and declarations without an execute
// function, so a bad catalogue fails at startup rather than at dispatch
// time.
func BuildNodeRegistry() (*domain.NodeRegistry, error) {
	catalogue := [][]domain.NodeDefinition{
		slacknode.Nodes(),
		discordnode.Nodes(),
		telegramnode.Nodes(),
		stripenode.Nodes(),
		githubnode.Nodes(),
		gitlabnode.Nodes(),
		jiranode.Nodes(),
		linearnode.Nodes(),
		sheetsnode.Nodes(),
		gmailnode.Nodes(),
		drivenode.Nodes(),
		resendnode.Nodes(),
		openainode.Nodes(),
		anthropicnode.Nodes(),
		twilionode.Nodes(),
		zoomnode.Nodes(),
		redisnode.Nodes(),
		mongonode.Nodes(),
		postgresnode.Nodes(),
		httpnode.Nodes(),
		cronnode.Nodes(),
		jwtnode.Nodes(),
		transformnode.Nodes(),
		conditionnode.Nodes(),
		validatenode.Nodes(),
		base64node.Nodes(),
	}

	definitions := []domain.NodeDefinition{}
	for _, group := range catalogue {
		definitions = append(definitions, group...)
	}

	return domain.NewNodeRegistry(definitions...)
}
