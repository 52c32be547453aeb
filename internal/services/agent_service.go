package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

const (
	TokenTTL          = 24 * time.Hour
	PasswordMinLength = 8
)

type AgentService struct {
	db        core.DbClient
	jwtSecret []byte
	now       func() time.Time
}

func NewAgentService(db core.DbClient, jwtSecret string) *AgentService {
	return &AgentService{db: db, jwtSecret: []byte(jwtSecret), now: time.Now}
}

// Create registers an agent with a bcrypt-hashed password.
func (s *AgentService) Create(ctx context.Context, email, password, firstName string) (*models.Agent, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	verr := &ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.add("email", "must be a valid email address")
	}
	if len(password) < PasswordMinLength {
		verr.add("password", "must be at least %d characters", PasswordMinLength)
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	existing, err := s.db.GetAgentByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup agent: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", email, ErrAgentExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	agent := &models.Agent{
		FirstName:    strings.TrimSpace(firstName),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.CreateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return agent, nil
}

// Authenticate checks credentials and returns a signed token.
func (s *AgentService) Authenticate(ctx context.Context, email, password string) (string, *models.Agent, error) {
	agent, err := s.db.GetAgentByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, fmt.Errorf("lookup agent: %w", err)
	}
	if agent == nil || bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.IssueToken(agent.ID)
	if err != nil {
		return "", nil, err
	}
	return token, agent, nil
}

// EnsureAdmin creates the bootstrap agent unless it already exists.
func (s *AgentService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.Create(ctx, email, password, "Admin")
	if err == nil {
		log.Printf("[agents] bootstrap admin %s created", email)
		return nil
	}
	if errors.Is(err, ErrAgentExists) {
		return nil
	}
	return err
}

// IssueToken signs an HS256 token carrying the agent id.
func (s *AgentService) IssueToken(agentID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": agentID,
		"exp":     s.now().Add(TokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
