package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/repository"
)

const maxAttachmentsPerRecommendation = 5

type ListQuery struct {
	RecipientID string
	Status      domain.RecommendationStatus
	Cursor      string
	PageSize    int
	ViewerID    string
}

// Page is one slice of a listing. HasMore is true whenever the page was filled,
// so a concurrent insert can still appear after a short page.
type Page struct {
	Items      []domain.Recommendation `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

type Upload struct {
	Name string
	Body io.Reader
	Size int64
}

type PagingOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	// PublicCacheTTL bounds how long a cached public listing page is served; zero disables caching.
	PublicCacheTTL time.Duration
}

type RecommendationService struct {
	recommendations repository.RecommendationRepository
	accounts        repository.AccountRepository
	validator       *RecommendationValidator
	documents       DocumentStore
	events          EventPublisher
	cache           ProfileCache
	metrics         *observability.DomainMetrics
	logger          *slog.Logger
	paging          PagingOptions
	now             func() time.Time
}

// NewRecommendationService accepts a nil documents store; attachment calls then fail with ErrStorageDisabled.
// A nil cache disables public listing caching.
func NewRecommendationService(
	recommendations repository.RecommendationRepository,
	accounts repository.AccountRepository,
	validator *RecommendationValidator,
	documents DocumentStore,
	events EventPublisher,
	cache ProfileCache,
	metrics *observability.DomainMetrics,
	logger *slog.Logger,
	paging PagingOptions,
) *RecommendationService {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = 10
	}
	if paging.MaxPageSize < paging.DefaultPageSize {
		paging.MaxPageSize = max(50, paging.DefaultPageSize)
	}
	if cache == nil {
		cache = NewNoopProfileCache()
	}
	return &RecommendationService{
		recommendations: recommendations,
		accounts:        accounts,
		validator:       validator,
		documents:       documents,
		events:          events,
		cache:           cache,
		metrics:         metrics,
		logger:          observability.ComponentLogger(logger, "recommendations"),
		paging:          paging,
		now:             time.Now,
	}
}

func (s *RecommendationService) Create(ctx context.Context, authorID, recipientID string, in RecommendationInput) (rec *domain.Recommendation, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "create", start, err) }()

	in = s.validator.Normalize(in)
	if err := s.validator.Validate(authorID, recipientID, in); err != nil {
		s.metrics.RecommendationRejected(rejectionReason(err))
		return nil, err
	}
	if _, err := s.accounts.FindByID(ctx, recipientID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.metrics.RecommendationRejected("recipient_not_found")
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	rec = &domain.Recommendation{
		ID:                 uuid.NewString(),
		AuthorID:           authorID,
		RecipientID:        recipientID,
		Relationship:       in.Relationship,
		EndorsementText:    in.EndorsementText,
		Rating:             in.Rating,
		Skills:             in.Skills,
		AdditionalSections: in.AdditionalSections,
		Status:             domain.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.recommendations.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist recommendation: %w", err)
	}
	s.metrics.RecommendationCreated()
	s.publish(ctx, newRecommendationEvent(EventRecommendationCreated, rec, now))
	return rec, nil
}

// GetByID reports absence through found rather than an error.
func (s *RecommendationService) GetByID(ctx context.Context, id string) (*domain.Recommendation, bool, error) {
	rec, err := s.recommendations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecommendationNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

// ListForRecipient shows the recipient every status; other viewers only see approved items.
func (s *RecommendationService) ListForRecipient(ctx context.Context, q ListQuery) (page *Page, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "list_received", start, err) }()

	status := q.Status
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if q.ViewerID != q.RecipientID {
		switch status {
		case "":
			status = domain.StatusApproved
		case domain.StatusApproved:
		default:
			return nil, ErrForbidden
		}
	}
	fetch := func(cursor string) (*Page, error) {
		return s.list(ctx, "received", cursor, q.PageSize, func(kq repository.KeysetQuery) ([]domain.Recommendation, error) {
			kq.OwnerID = q.RecipientID
			kq.Status = status
			return s.recommendations.ListForRecipient(ctx, kq)
		})
	}
	if q.ViewerID == q.RecipientID {
		return fetch(q.Cursor)
	}
	return s.cachedPublicPage(ctx, q.RecipientID, q.Cursor, s.pageSize(q.PageSize), fetch)
}

// cachedPublicPage serves the approved-only view other accounts see. Cache
// failures fall through to the store.
func (s *RecommendationService) cachedPublicPage(ctx context.Context, recipientID, cursor string, size int, fetch func(string) (*Page, error)) (*Page, error) {
	if s.paging.PublicCacheTTL <= 0 {
		return fetch(cursor)
	}
	key := fmt.Sprintf("%s|%d", cursor, size)
	raw, hit, err := s.cache.Get(ctx, recipientID, key)
	switch {
	case err != nil:
		observability.RecordProfileCacheEvent(ctx, "get", "error")
		s.logger.WarnContext(ctx, "profile cache read failed", "recipient_id", recipientID, "error", err)
	case hit:
		var page Page
		if err := json.Unmarshal(raw, &page); err == nil {
			observability.RecordProfileCacheEvent(ctx, "get", "hit")
			return &page, nil
		}
		observability.RecordProfileCacheEvent(ctx, "get", "corrupt")
	default:
		observability.RecordProfileCacheEvent(ctx, "get", "miss")
	}

	page, err := fetch(cursor)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(page); err == nil {
		if err := s.cache.Set(ctx, recipientID, key, raw, s.paging.PublicCacheTTL); err != nil {
			observability.RecordProfileCacheEvent(ctx, "set", "error")
			s.logger.WarnContext(ctx, "profile cache write failed", "recipient_id", recipientID, "error", err)
		}
	}
	return page, nil
}

func (s *RecommendationService) ListForAuthor(ctx context.Context, authorID, cursor string, pageSize int) (page *Page, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "list_authored", start, err) }()

	return s.list(ctx, "authored", cursor, pageSize, func(kq repository.KeysetQuery) ([]domain.Recommendation, error) {
		kq.OwnerID = authorID
		return s.recommendations.ListForAuthor(ctx, kq)
	})
}

func (s *RecommendationService) list(ctx context.Context, listing, cursor string, pageSize int, fetch func(repository.KeysetQuery) ([]domain.Recommendation, error)) (*Page, error) {
	after, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	size := s.pageSize(pageSize)
	items, err := fetch(repository.KeysetQuery{After: after, Limit: size})
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	observability.RecordRecommendationPageSize(ctx, listing, len(items))

	page := &Page{Items: items, HasMore: len(items) == size}
	if page.Items == nil {
		page.Items = []domain.Recommendation{}
	}
	if page.HasMore {
		page.NextCursor = repository.CursorFor(&items[len(items)-1]).Encode()
	}
	return page, nil
}

func (s *RecommendationService) pageSize(requested int) int {
	switch {
	case requested <= 0:
		return s.paging.DefaultPageSize
	case requested > s.paging.MaxPageSize:
		return s.paging.MaxPageSize
	default:
		return requested
	}
}

// SetStatus checks existence, then the actor, then the transition. The store
// update is conditional on the row still being pending, so only one of several
// concurrent callers wins.
func (s *RecommendationService) SetStatus(ctx context.Context, id string, status domain.RecommendationStatus, actorID string) (rec *domain.Recommendation, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "set_status", start, err) }()

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	rec, err = s.recommendations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecommendationNotFound) {
			return nil, ErrRecommendationNotFound
		}
		return nil, err
	}
	if rec.RecipientID != actorID {
		s.metrics.StatusTransition(string(status), "forbidden")
		return nil, ErrForbidden
	}
	if !domain.CanTransition(rec.Status, status) {
		s.metrics.StatusTransition(string(status), "invalid")
		return nil, ErrInvalidTransition
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	if err := s.recommendations.TransitionStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			s.metrics.StatusTransition(string(status), "lost_race")
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	rec.Status = status
	rec.UpdatedAt = now
	s.metrics.StatusTransition(string(status), "success")
	if err := s.cache.Invalidate(ctx, rec.RecipientID); err != nil {
		observability.RecordProfileCacheEvent(ctx, "invalidate", "error")
		s.logger.WarnContext(ctx, "profile cache invalidation failed", "recipient_id", rec.RecipientID, "error", err)
	}
	s.publish(ctx, newRecommendationEvent(EventRecommendationStatusChanged, rec, now))
	return rec, nil
}

// DeletePending lets the author withdraw a recommendation the recipient has not acted on.
func (s *RecommendationService) DeletePending(ctx context.Context, id, actorID string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "delete", start, err) }()

	rec, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return err
	}
	removed, err := s.recommendations.DeletePending(ctx, id, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("delete recommendation: %w", err)
	}
	if s.documents != nil {
		for _, att := range removed {
			if err := s.documents.Remove(ctx, att.ObjectKey); err != nil {
				s.logger.WarnContext(ctx, "orphaned attachment object", "object_key", att.ObjectKey, "error", err)
			}
		}
	}
	s.publish(ctx, newRecommendationEvent(EventRecommendationDeleted, rec, s.now()))
	return nil
}

func (s *RecommendationService) AddAttachment(ctx context.Context, id, actorID string, upload Upload) (att *domain.RecommendationAttachment, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "add_attachment", start, err) }()

	if s.documents == nil {
		return nil, ErrStorageDisabled
	}
	if upload.Size > MaxDocumentSize {
		return nil, ErrFileTooBig
	}
	rec, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if len(rec.Attachments) >= maxAttachmentsPerRecommendation {
		return nil, ErrAttachmentLimit
	}

	stored, err := s.documents.Put(ctx, id, upload.Body, upload.Size)
	if err != nil {
		return nil, err
	}
	att = &domain.RecommendationAttachment{
		ID:               uuid.NewString(),
		RecommendationID: id,
		Name:             attachmentName(upload.Name),
		ObjectKey:        stored.ObjectKey,
		ContentType:      stored.ContentType,
		SizeBytes:        stored.Size,
		CreatedAt:        s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.recommendations.AddAttachment(ctx, att, maxAttachmentsPerRecommendation); err != nil {
		if rmErr := s.documents.Remove(ctx, stored.ObjectKey); rmErr != nil {
			s.logger.WarnContext(ctx, "orphaned attachment object", "object_key", stored.ObjectKey, "error", rmErr)
		}
		switch {
		case errors.Is(err, repository.ErrAttachmentLimit):
			return nil, ErrAttachmentLimit
		case errors.Is(err, repository.ErrStaleTransition):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrRecommendationNotFound):
			return nil, ErrRecommendationNotFound
		default:
			return nil, fmt.Errorf("record attachment: %w", err)
		}
	}
	s.metrics.AttachmentStored()
	return att, nil
}

// AttachmentURL returns a short-lived download link if viewerID may see the recommendation.
func (s *RecommendationService) AttachmentURL(ctx context.Context, id, attachmentID, viewerID string) (string, error) {
	if s.documents == nil {
		return "", ErrStorageDisabled
	}
	rec, found, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !found || !rec.VisibleTo(viewerID) {
		return "", ErrRecommendationNotFound
	}
	att, err := s.recommendations.FindAttachment(ctx, id, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			return "", ErrAttachmentNotFound
		}
		return "", err
	}
	return s.documents.PresignGet(ctx, att.ObjectKey, att.Name)
}

// loadOwned returns the recommendation when actorID is its author and it is still pending.
func (s *RecommendationService) loadOwned(ctx context.Context, id, actorID string) (*domain.Recommendation, error) {
	rec, err := s.recommendations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecommendationNotFound) {
			return nil, ErrRecommendationNotFound
		}
		return nil, err
	}
	if rec.AuthorID != actorID {
		return nil, ErrForbidden
	}
	if rec.Status != domain.StatusPending {
		return nil, ErrInvalidTransition
	}
	return rec, nil
}

func (s *RecommendationService) publish(ctx context.Context, ev RecommendationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish domain event failed",
			"event_type", ev.Type, "recommendation_id", ev.RecommendationID, "error", err)
	}
}

func (s *RecommendationService) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	observability.RecordRecommendationOperation(ctx, op, outcome, time.Since(start))
}

func rejectionReason(err error) string {
	var tooShort *EndorsementTooShortError
	var limit *LimitExceededError
	switch {
	case errors.Is(err, ErrSelfRecommendation):
		return "self"
	case errors.Is(err, ErrInvalidRating):
		return "rating"
	case errors.As(err, &tooShort):
		return "too_short"
	case errors.As(err, &limit):
		return limit.Limit
	case errors.Is(err, ErrMarkupNotAllowed):
		return "markup"
	default:
		return "invalid"
	}
}

func attachmentName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
