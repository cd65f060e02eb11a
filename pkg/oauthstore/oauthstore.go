// Package oauthstore keeps OAuth2 tokens in a local JSON file and writes the
// refreshed token back whenever the provider issues a new one.
package oauthstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no stored oauth token, run `opsflow auth` first")

type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}

	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrNoToken
	}

	return &token, nil
}

// Save writes the token atomically with owner-only permissions.
func (s *FileStore) Save(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return os.Rename(tmp, s.path)
}

// persistingSource saves every token its parent hands out that differs from
// the last saved one.
type persistingSource struct {
	parent oauth2.TokenSource
	store  *FileStore

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.parent.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if token.AccessToken == p.last {
		return token, nil
	}

	if err := p.store.Save(token); err != nil {
		log.Error().Err(err).Str("path", p.store.Path()).Msg("Failed to persist refreshed oauth token")
	} else {
		log.Debug().Str("path", p.store.Path()).Time("expiry", token.Expiry).Msg("Persisted refreshed oauth token")
	}

	p.last = token.AccessToken

	return token, nil
}

// TokenSource loads the stored token and returns a source that refreshes it
// through config when expired and persists the result.
func TokenSource(ctx context.Context, config *oauth2.Config, store *FileStore) (oauth2.TokenSource, error) {
	token, err := store.Load()
	if err != nil {
		return nil, err
	}

	source := &persistingSource{
		parent: config.TokenSource(ctx, token),
		store:  store,
		last:   token.AccessToken,
	}

	return oauth2.ReuseTokenSource(token, source), nil
}

// HTTPClient returns an http.Client authorizing requests with the stored
// token.
func HTTPClient(ctx context.Context, config *oauth2.Config, store *FileStore) (*http.Client, error) {
	source, err := TokenSource(ctx, config, store)
	if err != nil {
		return nil, err
	}

	return oauth2.NewClient(ctx, source), nil
}

// Authorization is one interactive consent flow. Canva requires PKCE, so a
// verifier is always sent; Google accepts it too.
type Authorization struct {
	config   *oauth2.Config
	verifier string
	state    string
}

func NewAuthorization(config *oauth2.Config, state string) *Authorization {
	return &Authorization{config: config, verifier: oauth2.GenerateVerifier(), state: state}
}

// URL is the consent page the operator opens in a browser.
func (a *Authorization) URL() string {
	return a.config.AuthCodeURL(a.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(a.verifier))
}

// Complete exchanges the code pasted back by the operator and stores the
// token.
func (a *Authorization) Complete(ctx context.Context, code string, store *FileStore) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(a.verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := store.Save(token); err != nil {
		return nil, err
	}

	return token, nil
}
