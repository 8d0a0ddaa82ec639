package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/observability"

	"golang.org/x/oauth2"
)

const maxProfileBytes = 1 << 20

var errMalformedProfile = errors.New("malformed userinfo payload")

// ProviderProfile is the OpenID userinfo document; SubjectID and Email are required.
type ProviderProfile struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Picture       string
}

// DisplayName falls back to given/family names, then the email local part.
func (p *ProviderProfile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.GivenName + " " + p.FamilyName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}

type LinkedInOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Timeout      time.Duration
}

type LinkedInProviderClient struct {
	cfg         *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewLinkedInProviderClient(opts LinkedInOptions) *LinkedInProviderClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LinkedInProviderClient{
		cfg: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: opts.UserInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (p *LinkedInProviderClient) AuthCodeURL(state, redirectURI string) string {
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	return p.cfg.AuthCodeURL(state, opts...)
}

// Exchange trades a single-use code for a token. It is never retried.
func (p *LinkedInProviderClient) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	token, err := p.cfg.Exchange(ctx, code, opts...)
	if err != nil {
		perr := &ProviderError{Stage: "exchange", Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			perr.StatusCode = retrieveErr.Response.StatusCode
		}
		return nil, perr
	}
	if token.AccessToken == "" {
		return nil, &ProviderError{Stage: "exchange", Err: errors.New("missing access_token")}
	}
	return token, nil
}

func (p *LinkedInProviderClient) FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, &ProviderError{Stage: "userinfo", Err: errors.New("missing access token")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, &ProviderError{Stage: "userinfo", Err: err}
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Stage: "userinfo", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Stage: "userinfo", StatusCode: resp.StatusCode}
	}

	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&body); err != nil {
		return nil, &ProviderError{Stage: "userinfo", Err: fmt.Errorf("%w: %v", errMalformedProfile, err)}
	}
	if strings.TrimSpace(body.Sub) == "" {
		return nil, &ProviderError{Stage: "userinfo", Err: fmt.Errorf("%w: missing sub", errMalformedProfile)}
	}
	return &ProviderProfile{
		SubjectID:     body.Sub,
		Email:         strings.TrimSpace(body.Email),
		EmailVerified: body.EmailVerified != nil && *body.EmailVerified,
		Name:          body.Name,
		GivenName:     body.GivenName,
		FamilyName:    body.FamilyName,
		Picture:       body.Picture,
	}, nil
}

func providerStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func classifyProviderError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, errMalformedProfile) {
		return "invalid_userinfo"
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		switch {
		case perr.Stage == "userinfo" && perr.StatusCode != 0:
			return "userinfo_status"
		case perr.Stage == "exchange":
			return "token_exchange"
		}
	}
	return "other"
}

// recordProviderCall wraps one provider round trip in a span and metrics.
func recordProviderCall(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "linkedin."+stage)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	observability.RecordProviderRequestDuration(ctx, stage, providerStatus(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		observability.RecordProviderError(ctx, classifyProviderError(err))
	}
	return err
}
