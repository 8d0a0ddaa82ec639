package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/repository"
)

const testRedirectURI = "https://app.example.com/auth/linkedin/callback"

type identityFixture struct {
	svc      *IdentityService
	provider *MockProviderClient
	accounts repository.AccountRepository
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	ctrl := gomock.NewController(t)
	provider := NewMockProviderClient(ctrl)
	provider.EXPECT().AuthCodeURL(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(func(state, _ string) string {
		return "https://www.linkedin.com/oauth/v2/authorization?state=" + state
	})
	accounts := repository.NewAccountRepository(db)
	svc := NewIdentityService(
		accounts,
		repository.NewLocalCredentialRepository(db),
		provider,
		NewInMemoryStateStore(),
		testJWTIssuer(),
		fastHasher(),
		nil,
		discardLogger(),
		IdentityOptions{RedirectURI: testRedirectURI},
	)
	return &identityFixture{svc: svc, provider: provider, accounts: accounts}
}

func (f *identityFixture) expectProfile(profile *ProviderProfile) {
	f.provider.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		Return(&oauth2.Token{AccessToken: "li-token"}, nil)
	f.provider.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).AnyTimes().Return(profile, nil)
}

func (f *identityFixture) login(t *testing.T) *AuthResult {
	t.Helper()
	req, err := f.svc.BeginAuth(context.Background())
	if err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	res, err := f.svc.CompleteAuth(context.Background(), CallbackInput{Code: "code", State: req.State, RedirectURI: testRedirectURI})
	if err != nil {
		t.Fatalf("complete auth: %v", err)
	}
	return res
}

func verifiedProfile(email string) *ProviderProfile {
	return &ProviderProfile{SubjectID: "li-" + email, Email: email, EmailVerified: true, Name: "Ada Lovelace"}
}

func TestBeginAuthIssuesDistinctStates(t *testing.T) {
	f := newIdentityFixture(t)
	a, err := f.svc.BeginAuth(context.Background())
	if err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	b, err := f.svc.BeginAuth(context.Background())
	if err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	if a.State == b.State || len(a.State) != 43 {
		t.Fatalf("expected distinct 43-char states, got %q and %q", a.State, b.State)
	}
	if !strings.Contains(a.AuthorizationURL, a.State) {
		t.Fatalf("authorization url must carry the state: %s", a.AuthorizationURL)
	}
}

func TestCompleteAuthCreatesThenReusesAccount(t *testing.T) {
	f := newIdentityFixture(t)
	f.expectProfile(verifiedProfile("Ada@Example.com"))

	first := f.login(t)
	if !first.IsNewAccount || first.Account.HasLocalCredential {
		t.Fatalf("expected new account without local credential, got %+v", first.Account)
	}
	if first.Account.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", first.Account.Email)
	}
	if !strings.HasPrefix(first.Account.AvatarURL, avatarFallbackURL) {
		t.Fatalf("expected fallback avatar, got %q", first.Account.AvatarURL)
	}
	wantProfile := domain.ProfileURLFor(domain.ProviderIdentity{Provider: domain.ProviderLinkedIn, SubjectID: "li-Ada@Example.com"})
	if first.Account.ProfileURL != wantProfile || !strings.HasPrefix(wantProfile, "https://www.linkedin.com/in/") {
		t.Fatalf("expected profile url %q, got %q", wantProfile, first.Account.ProfileURL)
	}
	stored, err := f.accounts.FindByID(context.Background(), first.Account.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.ProfileURL != wantProfile {
		t.Fatalf("expected stored profile url %q, got %q", wantProfile, stored.ProfileURL)
	}
	if first.Credential == nil || first.Credential.Subject != first.Account.ID {
		t.Fatalf("credential subject mismatch: %+v", first.Credential)
	}

	second := f.login(t)
	if second.IsNewAccount || second.Account.ID != first.Account.ID {
		t.Fatalf("expected existing account %s, got new=%v id=%s", first.Account.ID, second.IsNewAccount, second.Account.ID)
	}
}

func TestCompleteAuthLinksExistingLocalAccount(t *testing.T) {
	f := newIdentityFixture(t)
	registered, err := f.svc.RegisterLocal(context.Background(), "grace@example.com", "Grace", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f.expectProfile(verifiedProfile("GRACE@example.com"))

	res := f.login(t)
	if res.IsNewAccount || res.Account.ID != registered.Account.ID {
		t.Fatalf("expected provider login to link account %s, got %+v", registered.Account.ID, res)
	}
	stored, err := f.accounts.FindByID(context.Background(), registered.Account.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if id, ok := stored.Identity(); !ok || id.Provider != domain.ProviderLinkedIn {
		t.Fatalf("expected linked identity, got %+v ok=%v", id, ok)
	}
	if stored.ProfileURL == "" || stored.ProfileURL != res.Account.ProfileURL {
		t.Fatalf("expected linking to fill profile url, stored=%q returned=%q", stored.ProfileURL, res.Account.ProfileURL)
	}
}

func TestCompleteAuthStateIsSingleUse(t *testing.T) {
	f := newIdentityFixture(t)
	f.expectProfile(verifiedProfile("once@example.com"))
	req, err := f.svc.BeginAuth(context.Background())
	if err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	in := CallbackInput{Code: "code", State: req.State}
	if _, err := f.svc.CompleteAuth(context.Background(), in); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if _, err := f.svc.CompleteAuth(context.Background(), in); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected replayed state to fail with ErrInvalidState, got %v", err)
	}
}

func TestCompleteAuthRejectsBadStateWithoutProviderCall(t *testing.T) {
	tests := []struct {
		name  string
		input func(issued string) CallbackInput
	}{
		{"unknown state", func(string) CallbackInput { return CallbackInput{Code: "code", State: "S2"} }},
		{"empty state", func(string) CallbackInput { return CallbackInput{Code: "code"} }},
		{"redirect mismatch", func(issued string) CallbackInput {
			return CallbackInput{Code: "code", State: issued, RedirectURI: "https://evil.example.com/cb"}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newIdentityFixture(t)
			f.provider.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			f.provider.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).Times(0)

			req, err := f.svc.BeginAuth(context.Background())
			if err != nil {
				t.Fatalf("begin auth: %v", err)
			}
			if _, err := f.svc.CompleteAuth(context.Background(), tc.input(req.State)); !errors.Is(err, ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestCompleteAuthProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(p *MockProviderClient)
		wantErr error
	}{
		{
			name: "exchange fails",
			setup: func(p *MockProviderClient) {
				p.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, &ProviderError{Stage: "exchange", StatusCode: 400})
			},
			wantErr: ErrProviderExchange,
		},
		{
			name: "email not verified",
			setup: func(p *MockProviderClient) {
				p.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).Return(&oauth2.Token{AccessToken: "t"}, nil)
				p.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).Return(&ProviderProfile{SubjectID: "s", Email: "x@example.com"}, nil)
			},
			wantErr: ErrUnverifiedEmail,
		},
		{
			name: "missing subject",
			setup: func(p *MockProviderClient) {
				p.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).Return(&oauth2.Token{AccessToken: "t"}, nil)
				p.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).Return(&ProviderProfile{Email: "x@example.com", EmailVerified: true}, nil)
			},
			wantErr: ErrProviderExchange,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newIdentityFixture(t)
			tc.setup(f.provider)
			req, err := f.svc.BeginAuth(context.Background())
			if err != nil {
				t.Fatalf("begin auth: %v", err)
			}
			_, err = f.svc.CompleteAuth(context.Background(), CallbackInput{Code: "code", State: req.State})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConcurrentCompleteAuthCreatesOneAccount(t *testing.T) {
	f := newIdentityFixture(t)
	f.expectProfile(verifiedProfile("race@example.com"))

	const callers = 8
	states := make([]string, callers)
	for i := range states {
		req, err := f.svc.BeginAuth(context.Background())
		if err != nil {
			t.Fatalf("begin auth: %v", err)
		}
		states[i] = req.State
	}

	ids := make([]string, callers)
	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			res, err := f.svc.CompleteAuth(context.Background(), CallbackInput{Code: fmt.Sprintf("code-%d", i), State: states[i]})
			if err != nil {
				return err
			}
			ids[i] = res.Account.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent callbacks: %v", err)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected one account id, got %v", ids)
		}
	}
}

func TestAttachLocalCredentialThenSignIn(t *testing.T) {
	f := newIdentityFixture(t)
	f.expectProfile(verifiedProfile("link@example.com"))
	res := f.login(t)
	ctx := context.Background()

	if err := f.svc.AttachLocalCredential(ctx, res.Account.ID, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := f.svc.AttachLocalCredential(ctx, res.Account.ID, "s3cret-passphrase"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := f.svc.AttachLocalCredential(ctx, res.Account.ID, "another-passphrase"); !errors.Is(err, ErrCredentialAlreadySet) {
		t.Fatalf("expected ErrCredentialAlreadySet, got %v", err)
	}

	signed, err := f.svc.SignInLocal(ctx, "LINK@example.com", "s3cret-passphrase")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signed.Account.ID != res.Account.ID {
		t.Fatalf("expected same account %s, got %s", res.Account.ID, signed.Account.ID)
	}
}

func TestSignInLocalCollapsesFailures(t *testing.T) {
	f := newIdentityFixture(t)
	f.expectProfile(verifiedProfile("oauth-only@example.com"))
	f.login(t)
	ctx := context.Background()
	if _, err := f.svc.RegisterLocal(ctx, "local@example.com", "Local", "right-password"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct{ name, email, secret string }{
		{"unknown email", "nobody@example.com", "right-password"},
		{"no local credential", "oauth-only@example.com", "right-password"},
		{"wrong password", "local@example.com", "wrong-password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.SignInLocal(ctx, tc.email, tc.secret); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterLocalValidation(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RegisterLocal(ctx, "dup@example.com", "Dup", "long-enough-pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	tests := []struct {
		name, email, displayName, secret string
		want                             error
	}{
		{"duplicate email", "DUP@example.com", "Other", "long-enough-pw", ErrEmailTaken},
		{"bad email", "not-an-email", "X", "long-enough-pw", ErrInvalidEmail},
		{"missing name", "x@example.com", "  ", "long-enough-pw", ErrNameRequired},
		{"weak password", "y@example.com", "Y", "1234567", ErrWeakPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.RegisterLocal(ctx, tc.email, tc.displayName, tc.secret); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGetAccountNotFound(t *testing.T) {
	f := newIdentityFixture(t)
	if _, err := f.svc.GetAccount(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
