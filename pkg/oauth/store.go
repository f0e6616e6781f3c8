package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// CodeStore persists authorization codes. ConsumeCode is the only read
// path the exchange uses: the mark-used happens inside it so a replayed
// code can never be observed unused twice.
type CodeStore interface {
	CreateCode(ctx context.Context, code AuthorizationCode) error
	// ConsumeCode atomically marks the code used and returns it. A
	// missing or already used code yields a not-found error. Validation
	// of expiry, client and PKCE happens after consumption; a code
	// burned by a failed validation stays burned.
	ConsumeCode(ctx context.Context, code string) (AuthorizationCode, error)
}

// ClientRepository resolves registered relying parties.
type ClientRepository interface {
	GetClient(ctx context.Context, id string) (Client, error)
}

// StaticClientRepository serves the administratively configured client
// allow-list.
type StaticClientRepository struct {
	clients map[string]Client
}

// NewStaticClientRepository parses a comma-separated list of
// id|redirectURI entries. Repeating an id registers additional redirect
// URIs for it.
func NewStaticClientRepository(spec string) (*StaticClientRepository, error) {
	clients := make(map[string]Client)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed oauth client entry %q", entry)
		}
		c := clients[parts[0]]
		c.ID = parts[0]
		c.RedirectURIs = append(c.RedirectURIs, parts[1])
		clients[parts[0]] = c
	}
	return &StaticClientRepository{clients: clients}, nil
}

func (r *StaticClientRepository) GetClient(ctx context.Context, id string) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, apperrors.NotFound("oauth client", id)
	}
	return c, nil
}

// InMemoryCodeStore is the map-backed CodeStore used in tests.
type InMemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]AuthorizationCode
}

func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{codes: make(map[string]AuthorizationCode)}
}

func (s *InMemoryCodeStore) CreateCode(ctx context.Context, code AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
	return nil
}

func (s *InMemoryCodeStore) ConsumeCode(ctx context.Context, code string) (AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[code]
	if !ok || rec.UsedAt != nil {
		return AuthorizationCode{}, apperrors.NotFound("authorization code", "")
	}
	now := time.Now().UTC()
	rec.UsedAt = &now
	s.codes[code] = rec
	return rec, nil
}

// PostgresCodeStore implements CodeStore on top of pgxpool.
type PostgresCodeStore struct {
	db *pgxpool.Pool
}

func NewPostgresCodeStore(db *pgxpool.Pool) *PostgresCodeStore {
	return &PostgresCodeStore{db: db}
}

func (s *PostgresCodeStore) CreateCode(ctx context.Context, code AuthorizationCode) error {
	query := `
		INSERT INTO authorization_codes
			(code, user_id, client_id, redirect_uri, code_challenge, challenge_method, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
	_, err := s.db.Exec(ctx, query,
		code.Code, code.UserID, code.ClientID, code.RedirectURI,
		code.CodeChallenge, string(code.ChallengeMethod), code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create authorization code: %w", err)
	}
	return nil
}

// ConsumeCode uses a conditional UPDATE so concurrent redemptions of the
// same code see exactly one row.
func (s *PostgresCodeStore) ConsumeCode(ctx context.Context, code string) (AuthorizationCode, error) {
	query := `
		UPDATE authorization_codes SET used_at = now()
		WHERE code = $1 AND used_at IS NULL
		RETURNING code, user_id, client_id, redirect_uri, code_challenge, challenge_method,
			expires_at, used_at, created_at`

	var rec AuthorizationCode
	var method string
	err := s.db.QueryRow(ctx, query, code).Scan(
		&rec.Code, &rec.UserID, &rec.ClientID, &rec.RedirectURI,
		&rec.CodeChallenge, &method, &rec.ExpiresAt, &rec.UsedAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthorizationCode{}, apperrors.NotFound("authorization code", "")
		}
		return AuthorizationCode{}, fmt.Errorf("failed to consume authorization code: %w", err)
	}
	rec.ChallengeMethod = ChallengeMethod(method)
	return rec, nil
}
