package app

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glory03023/datura-ai-fastapi-task/internal/auth"
	"github.com/glory03023/datura-ai-fastapi-task/internal/dividend"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	apperrors "github.com/glory03023/datura-ai-fastapi-task/internal/platform/errors"
	"github.com/glory03023/datura-ai-fastapi-task/internal/sentiment"
	"github.com/google/uuid"
)

const (
	minPasswordLen = 8
	maxFullNameLen = 100

	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	// NoQueryMessage answers a dividend query that names neither a netuid nor a hotkey.
	NoQueryMessage = "No netuid or hotkey provided"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) error
}

type TokenIssuer interface {
	Issue(username string) (token string, expiresAt time.Time, err error)
	Parse(token string) (username string, err error)
}

type DividendQuerier interface {
	GetPairDividend(ctx context.Context, netuid domain.Netuid, hotkey string) dividend.PairResult
	GetPartitionDividends(ctx context.Context, netuid domain.Netuid) dividend.PartitionResult
	GetAddressDividendsAcrossPartitions(ctx context.Context, hotkey string) dividend.FanoutResult
}

type Trader interface {
	Execute(ctx context.Context, user *domain.User, netuid domain.Netuid, hotkey string) bool
}

type SentimentReader interface {
	Current() sentiment.Reading
}

type TradingHistory interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TradingAction, error)
}

// Deps groups the collaborators of Service. ValidateHotkey rejects malformed
// hotkeys before they reach the ledger.
type Deps struct {
	Users          domain.UserRepository
	Hasher         PasswordHasher
	Tokens         TokenIssuer
	Dividends      DividendQuerier
	Trader         Trader
	Sentiment      SentimentReader
	History        TradingHistory
	ValidateHotkey func(string) error
}

// Service is the application layer. It is the only component that
// references several domain services at once.
type Service struct {
	users          domain.UserRepository
	hasher         PasswordHasher
	tokens         TokenIssuer
	dividends      DividendQuerier
	trader         Trader
	sentiment      SentimentReader
	history        TradingHistory
	validateHotkey func(string) error
}

func NewService(d Deps) *Service {
	validate := d.ValidateHotkey
	if validate == nil {
		validate = func(string) error { return nil }
	}
	return &Service{
		users:          d.Users,
		hasher:         d.Hasher,
		tokens:         d.Tokens,
		dividends:      d.Dividends,
		trader:         d.Trader,
		sentiment:      d.Sentiment,
		history:        d.History,
		validateHotkey: validate,
	}
}

type Registration struct {
	Username string
	FullName string
	Email    string
	Password string
}

func (r Registration) validate() error {
	switch {
	case r.Username == "" || r.FullName == "" || r.Email == "" || r.Password == "":
		return apperrors.ValidationError("username, full_name, email and password are required")
	case !usernamePattern.MatchString(r.Username):
		return apperrors.ValidationError("username must be 3-50 letters, digits, '.', '_' or '-'").
			WithField("username", r.Username)
	case utf8.RuneCountInString(r.FullName) > maxFullNameLen:
		return apperrors.ValidationError("full_name is too long")
	case len(r.Password) < minPasswordLen:
		return apperrors.ValidationError("password must be at least 8 characters")
	case len(r.Password) > auth.MaxPasswordBytes:
		return apperrors.ValidationError("password must be at most 72 bytes")
	}

	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return apperrors.ValidationError("email is not a valid address").WithField("email", r.Email)
	}
	return nil
}

// Register stores a new user with a bcrypt hash of the password.
func (s *Service) Register(ctx context.Context, r Registration) (*domain.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	if err := r.validate(); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(r.Password)
	if err != nil {
		return nil, apperrors.InternalError("failed to register user", err)
	}

	user, err := s.users.Create(ctx, domain.NewUser{
		Username:       r.Username,
		FullName:       r.FullName,
		Email:          r.Email,
		HashedPassword: hashed,
	})
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return nil, apperrors.ConflictError("Username already registered").WithField("username", r.Username)
	case err != nil:
		return nil, apperrors.InternalError("failed to register user", err)
	}
	return user, nil
}

type AccessToken struct {
	Token     string
	Type      string
	ExpiresAt time.Time
}

// Login verifies the credentials and issues an access token. Unknown users
// and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (AccessToken, error) {
	invalid := apperrors.ValidationError("Incorrect username or password")

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return AccessToken{}, invalid
	case err != nil:
		return AccessToken{}, apperrors.InternalError("failed to look up user", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return AccessToken{}, invalid
		}
		return AccessToken{}, apperrors.InternalError("failed to verify password", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		return AccessToken{}, apperrors.InternalError("failed to issue token", err)
	}
	return AccessToken{Token: token, Type: auth.TokenType, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.UnauthorizedError("Not authenticated", nil)
	}

	username, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.UnauthorizedError("Could not validate credentials", err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, apperrors.NotFoundError("User not found in the database")
	case err != nil:
		return nil, apperrors.InternalError("failed to load user", err)
	}
	return user, nil
}

type DividendRequest struct {
	Netuid *domain.Netuid
	Hotkey *string
	Trade  bool
}

// DividendReport carries one of three dividend shapes: *domain.Rao for a pair,
// []domain.DividendEntry for a partition, []*domain.Rao for a cross-partition
// lookup. Message is set only when the request names neither filter.
type DividendReport struct {
	Message          string
	Netuid           *domain.Netuid
	Hotkey           *string
	Dividend         any
	Cached           bool
	StakeTxTriggered bool
}

// QueryDividends dispatches on which filters are present. When trading is
// requested and both filters are present, the trade runs before the lookup.
func (s *Service) QueryDividends(ctx context.Context, user *domain.User, req DividendRequest) (DividendReport, error) {
	if req.Hotkey != nil {
		if err := s.validateHotkey(*req.Hotkey); err != nil {
			return DividendReport{}, apperrors.ValidationError("hotkey is not a valid SS58 address").
				WithField("hotkey", *req.Hotkey)
		}
	}

	report := DividendReport{Netuid: req.Netuid, Hotkey: req.Hotkey}

	if req.Trade && req.Netuid != nil && req.Hotkey != nil {
		report.StakeTxTriggered = s.trader.Execute(ctx, user, *req.Netuid, *req.Hotkey)
	}

	switch {
	case req.Netuid == nil && req.Hotkey == nil:
		return DividendReport{Message: NoQueryMessage}, nil

	case req.Netuid != nil && req.Hotkey != nil:
		res := s.dividends.GetPairDividend(ctx, *req.Netuid, *req.Hotkey)
		var value *domain.Rao
		if res.Found {
			value = &res.Value
		}
		report.Dividend, report.Cached = value, res.Cached

	case req.Netuid != nil:
		res := s.dividends.GetPartitionDividends(ctx, *req.Netuid)
		report.Dividend, report.Cached = res.Entries, res.Cached

	default:
		res := s.dividends.GetAddressDividendsAcrossPartitions(ctx, *req.Hotkey)
		report.Dividend, report.Cached = res.Values, res.Cached
	}
	return report, nil
}

func (s *Service) CurrentSentiment() sentiment.Reading {
	return s.sentiment.Current()
}

// ListTradingActions returns the user's most recent trading actions, newest first.
func (s *Service) ListTradingActions(ctx context.Context, user *domain.User, limit int) ([]domain.TradingAction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	actions, err := s.history.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, apperrors.InternalError("failed to list trading actions", err)
	}
	return actions, nil
}
