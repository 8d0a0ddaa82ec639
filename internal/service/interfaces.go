package service

//go:generate mockgen -destination=mocks_test.go -package=service -self_package=github.com/sandeepkv93/endorsement-backend/internal/service . ProviderClient,DocumentStore,EventPublisher
//go:generate mockgen -destination=gomock/service_mocks.go -package=gomock . IdentityServiceInterface,RecommendationServiceInterface,IdempotencyStore

import (
	"context"
	"io"

	"golang.org/x/oauth2"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
)

type ProviderClient interface {
	AuthCodeURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error)
}

type DocumentStore interface {
	Put(ctx context.Context, recommendationID string, body io.Reader, size int64) (*StoredDocument, error)
	Remove(ctx context.Context, objectKey string) error
	PresignGet(ctx context.Context, objectKey, fileName string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev RecommendationEvent) error
}

type IdentityServiceInterface interface {
	BeginAuth(ctx context.Context) (*AuthRequest, error)
	CompleteAuth(ctx context.Context, in CallbackInput) (*AuthResult, error)
	AttachLocalCredential(ctx context.Context, accountID, secret string) error
	SignInLocal(ctx context.Context, email, secret string) (*AuthResult, error)
	RegisterLocal(ctx context.Context, email, name, secret string) (*AuthResult, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

type RecommendationServiceInterface interface {
	Create(ctx context.Context, authorID, recipientID string, in RecommendationInput) (*domain.Recommendation, error)
	GetByID(ctx context.Context, id string) (*domain.Recommendation, bool, error)
	ListForRecipient(ctx context.Context, q ListQuery) (*Page, error)
	ListForAuthor(ctx context.Context, authorID, cursor string, pageSize int) (*Page, error)
	SetStatus(ctx context.Context, id string, status domain.RecommendationStatus, actorID string) (*domain.Recommendation, error)
	DeletePending(ctx context.Context, id, actorID string) error
	AddAttachment(ctx context.Context, id, actorID string, upload Upload) (*domain.RecommendationAttachment, error)
	AttachmentURL(ctx context.Context, id, attachmentID, viewerID string) (string, error)
}
