package setup

import (
	"context"

	"github.com/quill-chat/quill/internal/composer"
	"github.com/quill-chat/quill/internal/config"
	"github.com/quill-chat/quill/internal/domain"
	"github.com/quill-chat/quill/internal/emoji"
	"github.com/quill-chat/quill/internal/handler"
	"github.com/quill-chat/quill/internal/logger"
	"github.com/quill-chat/quill/internal/presence"
	"github.com/quill-chat/quill/internal/storage/fs"
	"github.com/quill-chat/quill/internal/storage/memory"
	"github.com/quill-chat/quill/internal/storage/pg"
	"github.com/quill-chat/quill/internal/storage/ws"
	"github.com/quill-chat/quill/internal/upload"
	"github.com/quill-chat/quill/internal/validation"
)

// Dependencies holds all initialized collaborators.
type Dependencies struct {
	Registry *composer.Registry
	Handler  *handler.Handler

	cleanups []func()
}

// Cleanup releases every connection the setup opened, composers first.
func (d *Dependencies) Cleanup() {
	d.Registry.CloseAll()
	for _, f := range d.cleanups {
		f()
	}
}

// SetupDependencies initializes the full dependency graph from config.
// Optional collaborators (postgres, redis) degrade to in-memory stand-ins
// when unconfigured.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	media, err := fs.New(cfg.Public.Media.RootPath, cfg.Public.Media.ChunkSizeBytes)
	if err != nil {
		return nil, err
	}

	var markerStore presence.Store
	if cfg.Public.Redis.Addr != "" {
		redisStore, err := presence.ConnectRedis(ctx, cfg.Public.Redis.Addr, cfg.Public.Presence.MarkerTTL())
		if err != nil {
			return nil, err
		}
		deps.cleanups = append(deps.cleanups, func() { redisStore.Close() })
		markerStore = redisStore
	} else {
		logger.Log.Info("no redis configured, typing markers stay in-process")
		markerStore = presence.NewMemoryStore()
	}

	var appender composer.Appender
	switch {
	case cfg.Public.Pg.Host != "":
		storage, err := pg.New(cfg.Public.Pg, cfg.PgPassword())
		if err != nil {
			return nil, err
		}
		deps.cleanups = append(deps.cleanups, func() { storage.Cleanup() })
		appender = storage
	case cfg.Public.Chat.WsUrl != "":
		conn, err := ws.Dial(cfg.Public.Chat.WsUrl)
		if err != nil {
			return nil, err
		}
		deps.cleanups = append(deps.cleanups, func() { conn.Close() })
		appender = conn
	default:
		logger.Log.Info("no record store configured, records stay in-process")
		appender = memory.NewAppender()
	}

	author := domain.User{
		Id:        cfg.Public.User.Id,
		Name:      cfg.Public.User.DisplayName,
		AvatarRef: cfg.Public.User.AvatarRef,
	}
	if author.Id == "" {
		author = domain.User{Id: "local", Name: "Anonymous"}
	}

	catalog := emoji.Builtin()
	gate := validation.NewGate(cfg.Public.Messaging.AllowedMimeTypes)

	factory := func(ch domain.Channel) *composer.Composer {
		return composer.New(
			appender,
			upload.New(media),
			presence.NewSignaler(markerStore, ch.Id, author.Id, author.Name),
			catalog,
			gate,
			author,
			ch,
		)
	}

	deps.Registry = composer.NewRegistry(factory)
	deps.Handler = handler.New(deps.Registry, cfg.Public.Messaging.MaxMessageLength)
	return deps, nil
}
