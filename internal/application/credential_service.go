package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/example/session-scheduler/internal/persistence"
)

var (
	ErrInvalidTokenHash         = errors.New("invalid token hash format")
	ErrIncompatibleTokenVersion = errors.New("incompatible token hash version")
	ErrTokenMismatch            = errors.New("token mismatch")
)

// Argon2idParams tunes the token hashing cost.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams are the standing cost parameters for check-in tokens.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// CredentialService issues the one-time check-in token for a session. Only
// the argon2id hash is persisted; the plaintext exists once, at issuance, for
// delivery to the check-in client.
type CredentialService struct {
	store          persistence.CredentialStore
	tokenGenerator func() string
	now            func() time.Time
	params         Argon2idParams
	logger         *slog.Logger
}

// NewCredentialService wires dependencies for credential issuance.
func NewCredentialService(store persistence.CredentialStore, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *CredentialService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return randomHex(32) }
	}
	if now == nil {
		now = time.Now
	}
	return &CredentialService{
		store:          store,
		tokenGenerator: tokenGenerator,
		now:            now,
		params:         DefaultArgon2idParams,
		logger:         defaultLogger(logger),
	}
}

// IssueFor generates and stores a credential for a newly created session.
// A session that already holds a credential is refused by the store.
func (s *CredentialService) IssueFor(ctx context.Context, session persistence.ClassSession) error {
	_, err := s.Issue(ctx, session)
	return err
}

// Issue generates a token, persists its hash and returns the plaintext.
func (s *CredentialService) Issue(ctx context.Context, session persistence.ClassSession) (string, error) {
	if session.ID == "" {
		return "", persistence.ErrConstraintViolation
	}

	token := s.tokenGenerator()
	hash, err := CreateTokenHash(token, s.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	credential := persistence.SessionCredential{
		SessionID: session.ID,
		TokenHash: hash,
		IssuedAt:  s.now(),
	}
	if err := s.store.SaveCredential(ctx, credential); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	serviceLogger(ctx, s.logger, "credentials", "issue", "session_id", session.ID).
		Info("check-in credential issued")
	return token, nil
}

// CreateTokenHash encodes an argon2id hash of the token.
// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
func CreateTokenHash(token string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyToken checks a presented token against a stored hash.
func VerifyToken(encodedHash, token string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return ErrInvalidTokenHash
	}
	if parts[1] != "argon2id" {
		return ErrInvalidTokenHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidTokenHash
	}
	if version != argon2.Version {
		return ErrIncompatibleTokenVersion
	}

	params, err := parseArgon2Params(parts[3])
	if err != nil {
		return err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidTokenHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidTokenHash
	}

	computed := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

func parseArgon2Params(segment string) (Argon2idParams, error) {
	params := Argon2idParams{}
	for _, field := range strings.Split(segment, ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Argon2idParams{}, ErrInvalidTokenHash
		}
		parsed, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Argon2idParams{}, ErrInvalidTokenHash
		}
		switch key {
		case "m":
			params.Memory = uint32(parsed)
		case "t":
			params.Iterations = uint32(parsed)
		case "p":
			params.Parallelism = uint8(parsed)
		default:
			return Argon2idParams{}, ErrInvalidTokenHash
		}
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return Argon2idParams{}, ErrInvalidTokenHash
	}
	return params, nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
