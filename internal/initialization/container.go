package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/angelsbailbonds/opsflow/internal/auth"
	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/internal/controllers"
	"github.com/angelsbailbonds/opsflow/internal/server"
	"github.com/angelsbailbonds/opsflow/internal/version"
	"github.com/angelsbailbonds/opsflow/pkg/backfill"
	"github.com/angelsbailbonds/opsflow/pkg/clients/canva"
	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/canvatools"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/clickuptools"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/googletools"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/n8ntools"
	"github.com/angelsbailbonds/opsflow/pkg/notify"
	"github.com/angelsbailbonds/opsflow/pkg/oauthstore"
	"github.com/angelsbailbonds/opsflow/pkg/session"
	"github.com/angelsbailbonds/opsflow/pkg/tasks"

	"github.com/gofiber/fiber/v3"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	MCPServerN8N     = "n8n"
	MCPServerClickUp = "clickup"
	MCPServerGoogle  = "google"
	MCPServerCanva   = "canva"
)

var MCPServers = []string{MCPServerN8N, MCPServerClickUp, MCPServerGoogle, MCPServerCanva}

// Container builds clients from the loaded config on first use. Each command
// asks only for what it needs, so a missing Canva token does not break
// `opsflow workflows`.
type Container struct {
	config *config.Config

	n8nClient     *n8n.Client
	clickUpClient *clickup.Client
	notifier      notify.Notifier
}

func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) N8N() (*n8n.Client, error) {
	if c.n8nClient != nil {
		return c.n8nClient, nil
	}

	if err := c.config.Require(config.KeyN8NBaseURL, config.KeyN8NAPIKey); err != nil {
		return nil, err
	}

	c.n8nClient = n8n.NewClient(
		n8n.WithBaseURL(c.config.N8NBaseURL),
		n8n.WithAPIKey(c.config.N8NAPIKey),
		n8n.WithUserAgent("opsflow/"+version.GetVersion()),
	)

	return c.n8nClient, nil
}

func (c *Container) ClickUp() (*clickup.Client, error) {
	if c.clickUpClient != nil {
		return c.clickUpClient, nil
	}

	if err := c.config.Require(config.KeyClickUpToken); err != nil {
		return nil, err
	}

	options := []clickup.ClientOption{clickup.WithToken(c.config.ClickUpToken)}
	if c.config.ClickUpBaseURL != "" {
		options = append(options, clickup.WithBaseURL(c.config.ClickUpBaseURL))
	}

	c.clickUpClient = clickup.NewClient(options...)

	return c.clickUpClient, nil
}

func (c *Container) Canva(ctx context.Context) (*canva.Client, error) {
	if err := c.config.Require(config.KeyCanvaClientID, config.KeyCanvaClientSecret, config.KeyCanvaTokenFile); err != nil {
		return nil, err
	}

	httpClient, err := oauthstore.HTTPClient(ctx,
		canva.OAuthConfig(c.config.CanvaClientID, c.config.CanvaClientSecret),
		oauthstore.NewFileStore(c.config.CanvaTokenFile))
	if err != nil {
		return nil, fmt.Errorf("canva: %w", err)
	}

	return canva.NewClient(canva.WithHTTPClient(httpClient)), nil
}

func (c *Container) Google(ctx context.Context) (*googletools.Services, error) {
	if err := c.config.Require(config.KeyGoogleClientID, config.KeyGoogleClientSecret, config.KeyGoogleTokenFile); err != nil {
		return nil, err
	}

	httpClient, err := oauthstore.HTTPClient(ctx,
		googletools.OAuthConfig(c.config.GoogleClientID, c.config.GoogleClientSecret),
		oauthstore.NewFileStore(c.config.GoogleTokenFile))
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	return googletools.NewServices(ctx, httpClient)
}

func (c *Container) Redis(ctx context.Context) (*redis.Client, error) {
	if err := c.config.Require(config.KeyRedisURL); err != nil {
		return nil, err
	}

	client, err := backfill.NewRedisClient(c.config.RedisURL)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (c *Container) Notifier() (notify.Notifier, error) {
	if c.notifier != nil {
		return c.notifier, nil
	}

	notifier, err := notify.New(notify.SlackConfig{
		WebhookURL: c.config.SlackWebhookURL,
		BotToken:   c.config.SlackBotToken,
		Channel:    c.config.SlackChannel,
	})
	if err != nil {
		return nil, err
	}

	c.notifier = notifier

	return notifier, nil
}

func (c *Container) Deduper() (*tasks.Deduper, error) {
	client, err := c.ClickUp()
	if err != nil {
		return nil, err
	}

	location, err := c.config.Location()
	if err != nil {
		return nil, err
	}

	return tasks.NewDeduper(tasks.DeduperDependencies{
		Tasks:    client,
		Location: location,
	}), nil
}

func (c *Container) SessionLogger() (*session.Logger, error) {
	if err := c.config.Require(config.KeyClickUpSessionTaskID); err != nil {
		return nil, err
	}

	client, err := c.ClickUp()
	if err != nil {
		return nil, err
	}

	notifier, err := c.Notifier()
	if err != nil {
		return nil, err
	}

	return session.NewLogger(session.LoggerDependencies{
		Comments: client,
		Notifier: notifier,
		TaskID:   c.config.ClickUpSessionTaskID,
	}), nil
}

// WebhookServer wires whatever is configured. A route whose dependencies are
// missing answers 503 instead of failing startup.
func (c *Container) WebhookServer(dryRun bool) (*fiber.App, error) {
	deps := controllers.WebhookControllerDependencies{DryRun: dryRun}

	if deduper, err := c.Deduper(); err == nil {
		deps.Deduper = deduper
	} else {
		log.Warn().Err(err).Msg("Duplicate check disabled")
	}

	if sessionLogger, err := c.SessionLogger(); err == nil {
		deps.SessionLogger = sessionLogger
	} else {
		log.Warn().Err(err).Msg("Session logging disabled")
	}

	serverDeps := server.HTTPServerDependencies{
		WebhookController: controllers.NewWebhookController(deps),
	}

	if c.config.WebhookSecret != "" {
		verifier, err := auth.NewAPISignatureVerifier(c.config.WebhookSecret)
		if err != nil {
			return nil, err
		}
		serverDeps.APIVerifier = verifier
	}

	if c.config.ClickUpWebhookSecret != "" {
		verifier, err := auth.NewClickUpVerifier(c.config.ClickUpWebhookSecret)
		if err != nil {
			return nil, err
		}
		serverDeps.ClickUpVerifier = verifier
	}

	return server.NewHTTPServer(serverDeps), nil
}

// MCPServer builds one of the stdio tool servers by name.
func (c *Container) MCPServer(ctx context.Context, name string) (*mcp.Server, error) {
	v := version.GetVersion()

	switch name {
	case MCPServerN8N:
		client, err := c.N8N()
		if err != nil {
			return nil, err
		}
		return n8ntools.NewServer(client, v), nil

	case MCPServerClickUp:
		client, err := c.ClickUp()
		if err != nil {
			return nil, err
		}

		location, err := c.config.Location()
		if err != nil {
			return nil, err
		}

		return clickuptools.NewServer(clickuptools.Dependencies{
			Client:   client,
			TeamID:   c.config.ClickUpTeamID,
			Location: location,
		}, v), nil

	case MCPServerGoogle:
		services, err := c.Google(ctx)
		if err != nil {
			return nil, err
		}
		return googletools.NewServer(services, v), nil

	case MCPServerCanva:
		client, err := c.Canva(ctx)
		if err != nil {
			return nil, err
		}
		return canvatools.NewServer(canvatools.Dependencies{Client: client}, v), nil
	}

	return nil, fmt.Errorf("unknown mcp server %q, expected one of %v", name, MCPServers)
}

// BackfillStore picks redis when REDIS_URL is set and the workflow's own
// static data otherwise.
func (c *Container) BackfillStore(ctx context.Context, workflowID, name string) (backfill.Store, func(), error) {
	if c.config.RedisURL != "" {
		client, err := c.Redis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return backfill.NewRedisStore(client, name), func() { client.Close() }, nil
	}

	client, err := c.N8N()
	if err != nil {
		return nil, nil, err
	}

	return backfill.NewStaticDataStore(client, workflowID), func() {}, nil
}

// ShutdownTimeout bounds graceful shutdown of the webhook server.
const ShutdownTimeout = 10 * time.Second
