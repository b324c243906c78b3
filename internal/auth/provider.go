package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"sync"

	"github.com/baljotchohan/Trade-Track-App/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const discoveryPath = "/.well-known/openid-configuration"

// discoveryDocument is the subset of the OIDC discovery response we use.
type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// jwksResponse is the provider's published key set.
type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// IDTokenClaims are the identity claims we read from a verified ID token.
type IDTokenClaims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	ProfileImageURL string `json:"picture"`
	Nonce           string `json:"nonce"`
}

// tokenResponse is the token endpoint's response to a code exchange.
type tokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ProviderInterface is the surface of the identity provider client used by
// the HTTP layer.
type ProviderInterface interface {
	AuthCodeURL(state, nonce string) string
	EndSessionURL(postLogoutRedirect string) string
	Exchange(ctx context.Context, code string) (string, error)
	VerifyIDToken(ctx context.Context, rawToken, nonce string) (*IDTokenClaims, error)
}

// Provider is a client for the external OIDC identity provider. It fetches
// the discovery document once at startup, caches the provider's signing
// keys, and rate-limits outbound calls to the token endpoint.
type Provider struct {
	client   *resty.Client
	cfg      *config.Auth
	logger   *zap.Logger
	limiter  *rate.Limiter
	metadata discoveryDocument

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey // by kid
}

// ensure Provider implements the interface
var _ ProviderInterface = (*Provider)(nil)

// NewProvider creates a provider client and fetches its discovery document
// and initial key set.
func NewProvider(cfg *config.Auth, logger *zap.Logger) (*Provider, error) {
	p := &Provider{
		client:  resty.New(),
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		keys:    make(map[string]*rsa.PublicKey),
	}

	resp, err := p.client.R().
		SetResult(&p.metadata).
		Get(cfg.Issuer + discoveryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OIDC discovery document: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("OIDC discovery request failed with status %s", resp.Status())
	}

	if err := p.refreshKeys(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("OIDC provider configured",
		zap.String("issuer", cfg.Issuer),
		zap.Int("signing_keys", len(p.keys)),
	)
	return p, nil
}

// AuthCodeURL builds the provider's authorization URL for the code flow.
func (p *Provider) AuthCodeURL(state, nonce string) string {
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("redirect_uri", p.cfg.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)
	params.Set("nonce", nonce)
	return p.metadata.AuthorizationEndpoint + "?" + params.Encode()
}

// EndSessionURL returns the provider's logout URL, or empty when the
// provider does not publish one.
func (p *Provider) EndSessionURL(postLogoutRedirect string) string {
	if p.metadata.EndSessionEndpoint == "" {
		return ""
	}
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("post_logout_redirect_uri", postLogoutRedirect)
	return p.metadata.EndSessionEndpoint + "?" + params.Encode()
}

// Exchange trades an authorization code for the provider's tokens and
// returns the raw ID token.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var tokens tokenResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"code":          code,
			"redirect_uri":  p.cfg.RedirectURL,
			"client_id":     p.cfg.ClientID,
			"client_secret": p.cfg.ClientSecret,
		}).
		SetResult(&tokens).
		Post(p.metadata.TokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token exchange failed with status %s: %s", resp.Status(), resp.String())
	}
	if tokens.IDToken == "" {
		return "", fmt.Errorf("token response contained no id_token")
	}
	return tokens.IDToken, nil
}

// VerifyIDToken checks the token's RS256 signature against the provider's
// published keys and validates issuer, audience, expiry and nonce.
func (p *Provider) VerifyIDToken(ctx context.Context, rawToken, nonce string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, p.keyFunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(p.cfg.Issuer),
		jwt.WithAudience(p.cfg.ClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}
	if claims.Nonce != nonce {
		return nil, fmt.Errorf("ID token nonce mismatch")
	}
	return claims, nil
}

// keyFunc resolves the signing key named by the token header, refreshing
// the cached key set once when the kid is unknown (key rotation).
func (p *Provider) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("ID token header has no kid")
		}

		p.mu.RLock()
		key, ok := p.keys[kid]
		p.mu.RUnlock()
		if ok {
			return key, nil
		}

		if err := p.refreshKeys(ctx); err != nil {
			return nil, err
		}

		p.mu.RLock()
		key, ok = p.keys[kid]
		p.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("no signing key with kid %q", kid)
		}
		return key, nil
	}
}

// refreshKeys replaces the cached key set with the provider's current JWKS.
func (p *Provider) refreshKeys(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var jwks jwksResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&jwks).
		Get(p.metadata.JWKSURI)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("JWKS request failed with status %s", resp.Status())
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			p.logger.Warn("Skipping unparseable JWKS key", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}

	p.mu.Lock()
	p.keys = keys
	p.mu.Unlock()
	return nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
