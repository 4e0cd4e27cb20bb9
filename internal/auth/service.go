package auth

import (
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"learninghouse/internal/fault"
	"learninghouse/internal/persistence"
)

const (
	securityFile      = "security.yaml"
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

var descriptionPattern = regexp.MustCompile(`^[A-Za-z]\w{1,13}[A-Za-z0-9]$`)

type APIKey struct {
	ID          string    `yaml:"id"`
	Description string    `yaml:"description"`
	Role        Role      `yaml:"role"`
	Hash        string    `yaml:"hash"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// APIKeyInfo is an API key without its secret.
type APIKeyInfo struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAPIKey carries the plain key. It is shown once and never stored.
type NewAPIKey struct {
	APIKeyInfo
	Key string `json:"key"`
}

type database struct {
	AdminPassword   string   `yaml:"admin_password"`
	InitialPassword bool     `yaml:"initial_password"`
	APIKeys         []APIKey `yaml:"api_keys"`
}

type Service struct {
	filename string
	tokens   *TokenIssuer
	log      logrus.FieldLogger

	mu sync.RWMutex
	db database
}

// NewService loads security.yaml from directory, seeding it with the initial
// admin password when it does not exist yet.
func NewService(directory string, tokens *TokenIssuer, initialPassword string, log logrus.FieldLogger) (*Service, error) {
	s := &Service{
		filename: filepath.Join(directory, securityFile),
		tokens:   tokens,
		log:      log.WithField("component", "auth"),
	}

	err := persistence.LoadYAML(s.filename, &s.db)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), hashCost)
	if err != nil {
		return nil, err
	}
	s.db = database{AdminPassword: string(hash), InitialPassword: true}
	if err := s.save(); err != nil {
		return nil, err
	}

	s.log.Warn("security database created with the initial admin password, change it")
	return s, nil
}

func (s *Service) save() error {
	return persistence.SaveYAML(s.filename, s.db)
}

// InitialPassword reports whether the admin still uses the seeded password.
func (s *Service) InitialPassword() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.InitialPassword
}

func (s *Service) Login(password string) (Token, error) {
	s.mu.RLock()
	hash := s.db.AdminPassword
	s.mu.RUnlock()

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Token{}, fault.New(fault.Unauthorized, "", "Invalid password.")
	}
	return s.tokens.Issue(RoleAdmin)
}

func (s *Service) ChangePassword(oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength || len(newPassword) > MaxPasswordLength {
		return fault.Newf(fault.BadRequest, "", "Password must have between %d and %d characters.", MinPasswordLength, MaxPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bcrypt.CompareHashAndPassword([]byte(s.db.AdminPassword), []byte(oldPassword)) != nil {
		return fault.New(fault.Unauthorized, "", "Invalid password.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), hashCost)
	if err != nil {
		return err
	}

	s.db.AdminPassword = string(hash)
	s.db.InitialPassword = false
	return s.save()
}

func (s *Service) requireChangedPassword() error {
	if s.db.InitialPassword {
		return fault.New(fault.Forbidden, "", "Change the initial admin password before managing API keys.")
	}
	return nil
}

func (s *Service) ListAPIKeys() ([]APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireChangedPassword(); err != nil {
		return nil, err
	}

	infos := make([]APIKeyInfo, 0, len(s.db.APIKeys))
	for _, key := range s.db.APIKeys {
		infos = append(infos, key.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Description < infos[j].Description })
	return infos, nil
}

// CreateAPIKey issues a key of the form "{id}.{secret}". Only the bcrypt
// hash of the secret is stored.
func (s *Service) CreateAPIKey(description string, role Role) (NewAPIKey, error) {
	if !descriptionPattern.MatchString(description) {
		return NewAPIKey{}, fault.New(fault.BadRequest, description,
			"Description must have 3 to 15 word characters and start with a letter.")
	}
	if _, err := ParseAPIKeyRole(string(role)); err != nil {
		return NewAPIKey{}, fault.Wrap(fault.BadRequest, description, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireChangedPassword(); err != nil {
		return NewAPIKey{}, err
	}

	for _, key := range s.db.APIKeys {
		if key.Description == description {
			return NewAPIKey{}, fault.New(fault.APIKeyExists, description, "")
		}
	}

	id := uuid.NewString()
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return NewAPIKey{}, err
	}

	key := APIKey{
		ID:          id,
		Description: description,
		Role:        role,
		Hash:        string(hash),
		CreatedAt:   time.Now().UTC(),
	}
	s.db.APIKeys = append(s.db.APIKeys, key)
	if err := s.save(); err != nil {
		return NewAPIKey{}, err
	}

	s.log.WithField("description", description).WithField("role", role).Info("api key created")
	return NewAPIKey{APIKeyInfo: key.info(), Key: id + "." + secret}, nil
}

func (s *Service) DeleteAPIKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireChangedPassword(); err != nil {
		return err
	}

	for i, key := range s.db.APIKeys {
		if key.ID == id {
			s.db.APIKeys = append(s.db.APIKeys[:i], s.db.APIKeys[i+1:]...)
			return s.save()
		}
	}
	return fault.New(fault.NoAPIKey, id, "")
}

// Authorize resolves the role of a request. An API key wins over a bearer
// token when both are given.
func (s *Service) Authorize(bearer, apiKey string) (Role, error) {
	if apiKey != "" {
		return s.authorizeAPIKey(apiKey)
	}

	if bearer == "" {
		return "", fault.New(fault.Unauthorized, "", "")
	}

	claims, err := s.tokens.Validate(bearer)
	if err != nil {
		return "", fault.Wrap(fault.Unauthorized, "", err)
	}
	return claims.Role, nil
}

func (s *Service) authorizeAPIKey(apiKey string) (Role, error) {
	id, secret, ok := strings.Cut(apiKey, ".")
	if !ok {
		return "", fault.New(fault.Unauthorized, "", "Invalid API key.")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.db.APIKeys {
		if key.ID == id && bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(secret)) == nil {
			return key.Role, nil
		}
	}
	return "", fault.New(fault.Unauthorized, "", "Invalid API key.")
}

func (k APIKey) info() APIKeyInfo {
	return APIKeyInfo{
		ID:          k.ID,
		Description: k.Description,
		Role:        k.Role,
		CreatedAt:   k.CreatedAt,
	}
}
