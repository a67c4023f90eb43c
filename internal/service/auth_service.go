package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService. Registration also
// provisions the user's wallet account so every authenticated user can
// be settled against from the first order.
type AuthServiceImpl struct {
	userRepo    ports.UserRepository
	accountRepo ports.WalletAccountRepository
	tokenSvc    ports.TokenService
	hashSvc     ports.HashService
	notifySvc   ports.NotificationService
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	accountRepo ports.WalletAccountRepository,
	tokenSvc ports.TokenService,
	hashSvc ports.HashService,
	notifySvc ports.NotificationService,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		tokenSvc:    tokenSvc,
		hashSvc:     hashSvc,
		notifySvc:   notifySvc,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// Register creates a user and their wallet account. Delivery agents
// start unapproved and cannot act on orders until an admin approves
// them.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	if req.Role == domain.RoleAdmin {
		return nil, apperror.ErrForbidden()
	}

	hash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  hash,
		FullName:      req.FullName,
		Role:          req.Role,
		AgentApproved: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	account := &domain.WalletAccount{
		ID:        uuid.New(),
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet account: %w", err))
	}

	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &user.ID,
		Action:       domain.AuditActionRegister,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		Details:      fmt.Sprintf(`{"role":%q}`, user.Role),
		CreatedAt:    now,
	})

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues a token pair. The refresh token
// is stored only as a digest.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*ports.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidCredentials()
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &user.ID,
		Action:       domain.AuditActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return pair, nil
}

// Refresh rotates the refresh token: the presented token must match the
// stored digest, and a new pair replaces it.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokenSvc.Validate(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil || user.RefreshTokenHash == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if s.hashSvc.DigestToken(refreshToken) != *user.RefreshTokenHash {
		return nil, apperror.ErrInvalidToken()
	}

	return s.issueTokens(ctx, user)
}

// ApproveAgent marks a delivery agent as approved and notifies them.
func (s *AuthServiceImpl) ApproveAgent(ctx context.Context, agentID, adminID uuid.UUID) error {
	agent, err := s.userRepo.GetByID(ctx, agentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load agent: %w", err))
	}
	if agent == nil || agent.Role != domain.RoleDelivery {
		return apperror.ErrNotFound("Delivery agent")
	}
	if agent.AgentApproved {
		return nil
	}

	if err := s.userRepo.ApproveAgent(ctx, agentID); err != nil {
		return apperror.InternalError(fmt.Errorf("approve agent: %w", err))
	}

	title := domain.LocalizedText{Primary: "Account approved", Secondary: "تم اعتماد الحساب"}
	body := domain.LocalizedText{
		Primary:   "Your delivery agent account has been approved. You can now accept pickups.",
		Secondary: "تم اعتماد حساب المندوب الخاص بك. يمكنك الآن قبول الطلبات.",
	}
	if _, err := s.notifySvc.Notify(ctx, agentID, domain.NotificationTypeAgentApproval, title, body, nil); err != nil {
		s.log.Warn().Err(err).Str("agent_id", agentID.String()).Msg("approval notification failed")
	}

	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &adminID,
		Action:       domain.AuditActionAgentApprove,
		ResourceType: "user",
		ResourceID:   agentID.String(),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().
		Str("agent_id", agentID.String()).
		Str("admin_id", adminID.String()).
		Msg("delivery agent approved")
	return nil
}

// issueTokens generates a pair and persists the refresh token digest.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	access, expiresAt, err := s.tokenSvc.Generate(user.ID, user.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate access token: %w", err))
	}
	refresh, _, err := s.tokenSvc.GenerateRefresh(user.ID, user.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate refresh token: %w", err))
	}

	digest := s.hashSvc.DigestToken(refresh)
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, &digest); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store refresh digest: %w", err))
	}

	return &ports.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
