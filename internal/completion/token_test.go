package completion

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOAuthTokensSeededTokenSkipsExchange(t *testing.T) {
	f := newFakeGigaChat(t)
	tokens := NewOAuthTokens(OAuthConfig{
		AuthURL:     f.server.URL + "/oauth",
		Credentials: "aWQ6c2VjcmV0",
		AccessToken: "preset",
	}, f.server.Client())

	got, err := tokens.Token(context.Background())
	if err != nil || got != "preset" {
		t.Fatalf("expected preset token, got %q %v", got, err)
	}
	if f.authCalls != 0 {
		t.Fatalf("seeded token should not trigger an exchange")
	}

	tokens.Invalidate()
	got, err = tokens.Token(context.Background())
	if err != nil || got != "token-1" {
		t.Fatalf("expected fetched token, got %q %v", got, err)
	}
	if f.authHeader != "Basic aWQ6c2VjcmV0" {
		t.Fatalf("pre-encoded credentials not used: %q", f.authHeader)
	}
}

func TestOAuthTokensRefreshAfterExpiry(t *testing.T) {
	f := newFakeGigaChat(t)
	tokens := NewOAuthTokens(OAuthConfig{AuthURL: f.server.URL + "/oauth", ClientID: "a", ClientSecret: "b"}, f.server.Client())
	now := time.Now()
	tokens.now = func() time.Time { return now }

	if _, err := tokens.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	tokens.now = func() time.Time { return now.Add(time.Hour) }
	got, err := tokens.Token(context.Background())
	if err != nil || got != "token-2" || f.authCalls != 2 {
		t.Fatalf("expected refresh after expiry, got %q %v calls=%d", got, err, f.authCalls)
	}
}

func TestOAuthTokensWithoutCredentials(t *testing.T) {
	tokens := NewOAuthTokens(OAuthConfig{AccessToken: "only"}, nil)
	tokens.Invalidate()
	if _, err := tokens.Token(context.Background()); !errors.Is(err, errNoCredentials) {
		t.Fatalf("expected errNoCredentials, got %v", err)
	}
}

func TestExpiryTime(t *testing.T) {
	if !expiryTime(0).IsZero() {
		t.Fatalf("zero should mean no expiry")
	}
	if got := expiryTime(1700000000000); got.Unix() != 1700000000 {
		t.Fatalf("milliseconds misread: %v", got)
	}
	if got := expiryTime(1700000000); got.Unix() != 1700000000 {
		t.Fatalf("seconds misread: %v", got)
	}
}

func TestStaticToken(t *testing.T) {
	if _, err := StaticToken("").Token(context.Background()); err == nil {
		t.Fatalf("empty static token accepted")
	}
	StaticToken("k").Invalidate()
	if got, _ := StaticToken("k").Token(context.Background()); got != "k" {
		t.Fatalf("unexpected token %q", got)
	}
}
