package auth

import (
	"context"
	"sync"
	"time"
)

// CredentialProvider supplies the bearer token for outgoing requests.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token. An empty token sends no
// Authorization header.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// ServiceToken signs its own short-lived tokens and reuses one until it
// is close to expiry.
type ServiceToken struct {
	signer  *Signer
	subject string
	ttl     time.Duration

	mu    sync.Mutex
	token string
	exp   time.Time
}

// NewServiceToken returns a provider issuing admin tokens for subject.
func NewServiceToken(signer *Signer, subject string, ttl time.Duration) *ServiceToken {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ServiceToken{signer: signer, subject: subject, ttl: ttl}
}

func (p *ServiceToken) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && p.signer.now().Before(p.exp.Add(-p.ttl/5)) {
		return p.token, nil
	}
	tok, exp, err := p.signer.Sign(p.subject, RoleAdmin, p.ttl)
	if err != nil {
		return "", err
	}
	p.token, p.exp = tok, exp
	return tok, nil
}
