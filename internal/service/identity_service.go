package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/repository"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

const (
	stateEntropyBytes = 32
	maxPasswordLength = 256
	avatarFallbackURL = "https://api.dicebear.com/7.x/initials/svg?seed="
)

type AuthRequest struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

type CallbackInput struct {
	Code        string
	State       string
	RedirectURI string
}

type AuthResult struct {
	Credential   *SessionCredential `json:"credential"`
	Account      *domain.Account    `json:"account"`
	IsNewAccount bool               `json:"is_new_account"`
}

type IdentityOptions struct {
	StateTTL          time.Duration
	RedirectURI       string
	PasswordMinLength int
}

type IdentityService struct {
	accounts    repository.AccountRepository
	credentials repository.LocalCredentialRepository
	provider    ProviderClient
	states      StateStore
	issuer      CredentialIssuer
	hasher      *security.PasswordHasher
	metrics     *observability.DomainMetrics
	logger      *slog.Logger
	opts        IdentityOptions
	now         func() time.Time
	dummyHash   string
}

func NewIdentityService(
	accounts repository.AccountRepository,
	credentials repository.LocalCredentialRepository,
	provider ProviderClient,
	states StateStore,
	issuer CredentialIssuer,
	hasher *security.PasswordHasher,
	metrics *observability.DomainMetrics,
	logger *slog.Logger,
	opts IdentityOptions,
) *IdentityService {
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = 8
	}
	// Verified against on unknown emails so sign-in timing does not reveal account existence.
	dummy, _ := hasher.Hash("endorsement-timing-equalizer")
	return &IdentityService{
		accounts:    accounts,
		credentials: credentials,
		provider:    provider,
		states:      states,
		issuer:      issuer,
		hasher:      hasher,
		metrics:     metrics,
		logger:      observability.ComponentLogger(logger, "identity"),
		opts:        opts,
		now:         time.Now,
		dummyHash:   dummy,
	}
}

func (s *IdentityService) BeginAuth(ctx context.Context) (*AuthRequest, error) {
	state, err := security.NewRandomString(stateEntropyBytes)
	if err != nil {
		return nil, fmt.Errorf("generate oauth state: %w", err)
	}
	rec := StateRecord{RedirectURI: s.opts.RedirectURI, IssuedAt: s.now().UTC()}
	if err := s.states.Put(ctx, state, rec, s.opts.StateTTL); err != nil {
		observability.RecordOAuthStateEvent(ctx, "issue", "error")
		return nil, fmt.Errorf("persist oauth state: %w", err)
	}
	observability.RecordOAuthStateEvent(ctx, "issue", "success")
	return &AuthRequest{AuthorizationURL: s.provider.AuthCodeURL(state, ""), State: state}, nil
}

// CompleteAuth never contacts the provider unless the state is consumed successfully.
func (s *IdentityService) CompleteAuth(ctx context.Context, in CallbackInput) (*AuthResult, error) {
	if strings.TrimSpace(in.State) == "" {
		observability.RecordOAuthStateEvent(ctx, "consume", "missing")
		return nil, ErrInvalidState
	}
	rec, ok, err := s.states.Consume(ctx, in.State)
	if err != nil {
		observability.RecordOAuthStateEvent(ctx, "consume", "error")
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !ok {
		observability.RecordOAuthStateEvent(ctx, "consume", "invalid")
		return nil, ErrInvalidState
	}
	redirectURI := rec.RedirectURI
	if in.RedirectURI != "" {
		if redirectURI != "" && in.RedirectURI != redirectURI {
			observability.RecordOAuthStateEvent(ctx, "consume", "redirect_mismatch")
			return nil, ErrInvalidState
		}
		redirectURI = in.RedirectURI
	}
	observability.RecordOAuthStateEvent(ctx, "consume", "success")

	if strings.TrimSpace(in.Code) == "" {
		return nil, &ProviderError{Stage: "exchange", Err: errors.New("missing authorization code")}
	}

	var token *oauth2.Token
	if err := recordProviderCall(ctx, "exchange", func(ctx context.Context) error {
		var callErr error
		token, callErr = s.provider.Exchange(ctx, in.Code, redirectURI)
		return callErr
	}); err != nil {
		s.metrics.IdentityResolved("provider_error")
		return nil, asProviderError("exchange", err)
	}

	var profile *ProviderProfile
	if err := recordProviderCall(ctx, "userinfo", func(ctx context.Context) error {
		var callErr error
		profile, callErr = s.provider.FetchProfile(ctx, token)
		return callErr
	}); err != nil {
		s.metrics.IdentityResolved("provider_error")
		return nil, asProviderError("userinfo", err)
	}
	if profile == nil || strings.TrimSpace(profile.SubjectID) == "" {
		s.metrics.IdentityResolved("provider_error")
		return nil, &ProviderError{Stage: "userinfo", Err: errMalformedProfile}
	}
	if !profile.EmailVerified || domain.NormalizeEmail(profile.Email) == "" {
		observability.RecordProviderError(ctx, "email_not_verified")
		s.metrics.IdentityResolved("unverified_email")
		return nil, ErrUnverifiedEmail
	}

	account, outcome, err := s.resolveAccount(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.metrics.IdentityResolved(outcome)
	observability.RecordIdentityResolution(ctx, outcome)

	cred, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, domain.ProviderLinkedIn, "success")
	return &AuthResult{Credential: cred, Account: account, IsNewAccount: outcome == "created"}, nil
}

// resolveAccount maps a verified profile onto exactly one account. Creation
// relies on the unique email index, so concurrent callers converge on one row.
func (s *IdentityService) resolveAccount(ctx context.Context, profile *ProviderProfile) (*domain.Account, string, error) {
	email := domain.NormalizeEmail(profile.Email)
	identity := domain.ProviderIdentity{Provider: domain.ProviderLinkedIn, SubjectID: profile.SubjectID}

	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.linkExisting(ctx, account, identity)
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, "", fmt.Errorf("lookup account by email: %w", err)
	}

	// The provider email may have changed since the identity was first linked.
	account, err = s.accounts.FindByProviderIdentity(ctx, identity)
	switch {
	case err == nil:
		return account, "existing_subject", nil
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, "", fmt.Errorf("lookup account by provider identity: %w", err)
	}

	candidate := &domain.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: profile.DisplayName(),
		AvatarURL:   avatarOrFallback(profile.Picture, email),
	}
	candidate.SetIdentity(identity)
	created, err := s.accounts.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, "", fmt.Errorf("create account: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "account created from provider identity", "account_id", candidate.ID)
		return candidate, "created", nil
	}

	// Another request inserted the row first; read whichever one won.
	account, err = s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return s.linkExisting(ctx, account, identity)
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, "", fmt.Errorf("reload account by email: %w", err)
	}
	account, err = s.accounts.FindByProviderIdentity(ctx, identity)
	if err != nil {
		return nil, "", fmt.Errorf("reload account by provider identity: %w", err)
	}
	return account, "existing_subject", nil
}

func (s *IdentityService) linkExisting(ctx context.Context, account *domain.Account, identity domain.ProviderIdentity) (*domain.Account, string, error) {
	if _, linked := account.Identity(); linked {
		return account, "existing", nil
	}
	owner, err := s.accounts.FindByProviderIdentity(ctx, identity)
	switch {
	case err == nil && owner.ID != account.ID:
		s.logger.WarnContext(ctx, "provider identity already linked to another account",
			"account_id", account.ID, "owner_id", owner.ID)
		return account, "existing", nil
	case err != nil && !errors.Is(err, repository.ErrAccountNotFound):
		return nil, "", fmt.Errorf("lookup provider identity owner: %w", err)
	}
	linked, err := s.accounts.LinkProviderIdentity(ctx, account.ID, identity)
	if err != nil {
		return nil, "", fmt.Errorf("link provider identity: %w", err)
	}
	if linked {
		account.SetIdentity(identity)
		return account, "linked", nil
	}
	return account, "existing", nil
}

func (s *IdentityService) AttachLocalCredential(ctx context.Context, accountID, secret string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.HasLocalCredential {
		return ErrCredentialAlreadySet
	}
	if err := s.validatePassword(secret); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	switch err := s.credentials.Attach(ctx, accountID, hash); {
	case err == nil:
		observability.RecordAuthLogin(ctx, "local_attach", "success")
		return nil
	case errors.Is(err, repository.ErrCredentialExists):
		return ErrCredentialAlreadySet
	case errors.Is(err, repository.ErrAccountNotFound):
		return ErrAccountNotFound
	default:
		return err
	}
}

// SignInLocal reports every failure cause as ErrInvalidCredentials.
func (s *IdentityService) SignInLocal(ctx context.Context, email, secret string) (*AuthResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
		_, _ = s.hasher.Verify(s.dummyHash, secret)
		observability.RecordAuthLogin(ctx, "local", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	cred, err := s.credentials.FindByAccountID(ctx, account.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, err
		}
		_, _ = s.hasher.Verify(s.dummyHash, secret)
		observability.RecordAuthLogin(ctx, "local", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(cred.PasswordHash, secret)
	if err != nil || !ok {
		if err != nil {
			s.logger.ErrorContext(ctx, "stored password hash unreadable", "account_id", account.ID, "error", err)
		}
		observability.RecordAuthLogin(ctx, "local", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	issued, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "local", "success")
	return &AuthResult{Credential: issued, Account: account}, nil
}

func (s *IdentityService) RegisterLocal(ctx context.Context, email, name, secret string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.validatePassword(secret); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &domain.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: name,
		AvatarURL:   avatarOrFallback("", email),
	}
	if err := s.accounts.CreateWithCredential(ctx, account, hash); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	issued, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "local_register", "success")
	return &AuthResult{Credential: issued, Account: account, IsNewAccount: true}, nil
}

func (s *IdentityService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *IdentityService) issue(ctx context.Context, account *domain.Account) (*SessionCredential, error) {
	cred, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session credential: %w", err)
	}
	now := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.WarnContext(ctx, "record last login failed", "account_id", account.ID, "error", err)
	} else {
		account.LastLoginAt = &now
	}
	return cred, nil
}

func (s *IdentityService) validatePassword(secret string) error {
	n := utf8.RuneCountInString(secret)
	if strings.TrimSpace(secret) == "" || n < s.opts.PasswordMinLength || n > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func asProviderError(stage string, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &ProviderError{Stage: stage, Err: err}
}

func avatarOrFallback(picture, email string) string {
	if strings.TrimSpace(picture) != "" {
		return picture
	}
	return avatarFallbackURL + url.QueryEscape(email)
}
