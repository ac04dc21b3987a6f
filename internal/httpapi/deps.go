package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"peerd/internal/backends"
	"peerd/internal/netsrv"
	"peerd/internal/rag"
	"peerd/internal/session"
	"peerd/pkg/types"
)

// Sessions is the model session manager surface used by handlers.
type Sessions interface {
	EnsureLoaded(ctx context.Context, identifier string) (session.Active, error)
	Generate(ctx context.Context, job session.Job, onToken func(string) error) (session.Outcome, error)
	Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error)
	Active() *session.Active
	ResolveSettings(opts map[string]any) session.Settings
	SetThinking(enabled bool)
	Thinking() bool
}

// Models is the stored-model registry surface.
type Models interface {
	List() []types.Model
	Resolve(identifier string) (types.Model, bool)
	Copy(source, destination string) error
	Delete(nameOrPath string) error
}

// Puller starts and reports model downloads.
type Puller interface {
	Start(url, model string) (types.PullStatus, error)
	Status() []types.PullStatus
}

// Chats is the conversation store surface.
type Chats interface {
	ListChats(ctx context.Context) ([]types.Chat, error)
	CreateChat(ctx context.Context, title, model string) (types.Chat, error)
	GetChat(ctx context.Context, id string) (types.Chat, []types.ChatMessage, error)
	UpdateChat(ctx context.Context, id string, title, model *string) (types.Chat, error)
	DeleteChat(ctx context.Context, id string) error
	AddMessage(ctx context.Context, chatID, role, content string) (types.ChatMessage, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
}

// Retrieval is the retrieval index surface.
type Retrieval interface {
	Ingest(ctx context.Context, name, text string) (int, error)
	Search(ctx context.Context, query string, k int) ([]rag.Hit, error)
	Status() types.RagStatus
	SetEnabled(enabled bool)
	Enabled() bool
	DeleteDocument(name string) bool
}

// Signaling exposes the pending offer and answer routing owned by the
// transport.
type Signaling interface {
	PendingOffer() (netsrv.Offer, bool)
	DeliverAnswer(sdp, peerID string) error
}

// Backends controls alternate model backends.
type Backends interface {
	List() []backends.Backend
	Select(name string) error
	Selected() string
	EnableApple(enabled bool) error
	SetProviderKey(provider, key string) error
	EnableProvider(provider string, enabled bool) error
}

// Deps wires the handler layer to its collaborators.
type Deps struct {
	Log       zerolog.Logger
	Sessions  Sessions
	Models    Models
	Puller    Puller
	Chats     Chats
	Retrieval Retrieval
	Signal    Signaling
	Backends  Backends
	StartedAt time.Time
}
