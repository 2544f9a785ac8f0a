package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/auth"
	"access-service/internal/billing"
	"access-service/internal/mailer"
	"access-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service drives the invitation state machine:
// pending -> accepted | declined | expired | revoked, all one-way.
type Service struct {
	db   *gorm.DB
	gate *billing.Gate
	auth *auth.Service
	mail mailer.EmailSender
	ttl  time.Duration
	log  *zap.Logger
}

// NewService wires the invitation lifecycle.
func NewService(db *gorm.DB, gate *billing.Gate, authSvc *auth.Service, mail mailer.EmailSender, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{db: db, gate: gate, auth: authSvc, mail: mail, ttl: ttl, log: log}
}

// Create issues a pending invitation with a single-use token. The caller
// must already have verified the inviter's admin rights in the workspace.
// Inviting is seat-gated; the snapshot is returned on rejection so the
// caller can render usage.
func (s *Service) Create(inviter *model.User, workspaceID uint, email, role string) (*model.Invitation, *billing.Snapshot, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil, fmt.Errorf("email is required")
	}
	switch role {
	case model.WorkspaceRoleAdmin, model.WorkspaceRoleMember, model.WorkspaceRoleViewer:
	default:
		return nil, nil, fmt.Errorf("invalid role %q", role)
	}

	ok, snapshot, err := s.gate.CanAddMember(workspaceID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, snapshot, apperr.ErrLimitExceeded
	}

	var pending model.Invitation
	err = s.db.Where("workspace_id = ? AND email = ? AND status = ?",
		workspaceID, email, model.InvitationPending).First(&pending).Error
	if err == nil {
		return nil, snapshot, fmt.Errorf("a pending invitation already exists for %s", email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, nil, err
	}

	invitation := model.Invitation{
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        role,
		Token:       token,
		InvitedBy:   inviter.ID,
		Status:      model.InvitationPending,
		ExpiresAt:   time.Now().Add(s.ttl),
	}
	if err := s.db.Create(&invitation).Error; err != nil {
		return nil, nil, err
	}

	s.audit(workspaceID, inviter.ID, model.ActivityInvitationSent, email)

	var workspace model.Workspace
	workspaceName := ""
	if err := s.db.First(&workspace, workspaceID).Error; err == nil {
		workspaceName = workspace.Name
	}

	// Delivery is an external concern; failures are logged, never fatal
	msg := mailer.Message{
		To:      email,
		Subject: fmt.Sprintf("You have been invited to %s", workspaceName),
		TextBody: fmt.Sprintf(
			"You have been invited to join %s as %s. Use invitation token %s to accept. The invitation expires on %s.",
			workspaceName, role, token, invitation.ExpiresAt.Format(time.RFC1123)),
	}
	if err := s.mail.SendEmail(context.Background(), msg); err != nil {
		s.log.Warn("Failed to send invitation email",
			zap.String("email", email),
			zap.Error(err))
	}

	s.log.Info("Invitation created",
		zap.Uint("workspace_id", workspaceID),
		zap.String("email", email),
		zap.String("role", role))
	return &invitation, snapshot, nil
}

// Accept converts a pending, unexpired invitation into a workspace
// membership. password is required only when the invited address has no
// account yet. Re-accepting an already accepted invitation is idempotent
// once the first acceptance succeeded.
func (s *Service) Accept(token, password string) (*model.WorkspaceMembership, error) {
	var invitation model.Invitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, apperr.ErrInvitationInvalid
	}

	switch invitation.Status {
	case model.InvitationPending:
		// fall through
	case model.InvitationAccepted:
		// Idempotent re-accept: return the membership the first acceptance
		// produced, without touching anything.
		return s.existingMembership(&invitation)
	default:
		return nil, apperr.ErrInvitationInvalid
	}

	if time.Now().After(invitation.ExpiresAt) {
		// Transition to expired first, then fail the acceptance
		s.expire(&invitation)
		return nil, apperr.ErrInvitationInvalid
	}

	var membership *model.WorkspaceMembership
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Where("email = ?", invitation.Email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if password == "" {
				return fmt.Errorf("a password is required to create the account")
			}
			created, err := s.auth.CreateUser(tx, invitation.WorkspaceID, invitation.Email, password, model.UserTypeTeamMember)
			if err != nil {
				return err
			}
			user = *created
		} else if err != nil {
			return err
		}

		now := time.Now()

		// The conditional update is what loses gracefully against a
		// concurrent sweep or a second acceptance.
		result := tx.Model(&model.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, model.InvitationPending).
			Updates(map[string]interface{}{"status": model.InvitationAccepted, "accepted_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.ErrInvitationInvalid
		}

		var existing model.WorkspaceMembership
		err = tx.Where("user_id = ? AND workspace_id = ?", user.ID, invitation.WorkspaceID).First(&existing).Error
		if err == nil {
			// Already a member: mark accepted without a duplicate row
			membership = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		invitedBy := invitation.InvitedBy
		created := model.WorkspaceMembership{
			UserID:      user.ID,
			WorkspaceID: invitation.WorkspaceID,
			Role:        invitation.Role,
			IsPrimary:   false,
			InvitedBy:   &invitedBy,
			JoinedAt:    now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		membership = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Invitation accepted",
		zap.Uint("workspace_id", invitation.WorkspaceID),
		zap.String("email", invitation.Email))
	return membership, nil
}

// Decline marks a pending invitation declined. Invitee-initiated.
func (s *Service) Decline(token string) error {
	var invitation model.Invitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return apperr.ErrInvitationInvalid
	}
	return s.transition(invitation.ID, model.InvitationDeclined)
}

// Revoke marks a pending invitation revoked. Admin-initiated; the caller
// verifies admin rights.
func (s *Service) Revoke(actor *model.User, workspaceID, invitationID uint) error {
	var invitation model.Invitation
	err := s.db.Where("id = ? AND workspace_id = ?", invitationID, workspaceID).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := s.transition(invitation.ID, model.InvitationRevoked); err != nil {
		return err
	}
	s.audit(workspaceID, actor.ID, model.ActivityInvitationRevoked, invitation.Email)
	return nil
}

// List returns a workspace's invitations, newest first.
func (s *Service) List(workspaceID uint) ([]model.Invitation, error) {
	var invitations []model.Invitation
	err := s.db.Where("workspace_id = ?", workspaceID).Order("created_at DESC").Find(&invitations).Error
	return invitations, err
}

// Sweep expires every overdue pending invitation in one atomic conditional
// update, so it is idempotent and safe next to live acceptances.
func (s *Service) Sweep() (int64, error) {
	result := s.db.Model(&model.Invitation{}).
		Where("status = ? AND expires_at <= ?", model.InvitationPending, time.Now()).
		Update("status", model.InvitationExpired)
	return result.RowsAffected, result.Error
}

func (s *Service) transition(invitationID uint, to string) error {
	result := s.db.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", invitationID, model.InvitationPending).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrInvitationInvalid
	}
	return nil
}

func (s *Service) expire(invitation *model.Invitation) {
	result := s.db.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", invitation.ID, model.InvitationPending).
		Update("status", model.InvitationExpired)
	if result.Error != nil {
		s.log.Warn("Failed to expire invitation",
			zap.Uint("invitation_id", invitation.ID),
			zap.Error(result.Error))
	}
}

func (s *Service) existingMembership(invitation *model.Invitation) (*model.WorkspaceMembership, error) {
	var user model.User
	if err := s.db.Where("email = ?", invitation.Email).First(&user).Error; err != nil {
		return nil, apperr.ErrInvitationInvalid
	}
	var membership model.WorkspaceMembership
	err := s.db.Where("user_id = ? AND workspace_id = ?", user.ID, invitation.WorkspaceID).First(&membership).Error
	if err != nil {
		return nil, apperr.ErrInvitationInvalid
	}
	return &membership, nil
}

func (s *Service) audit(workspaceID, userID uint, action, detail string) {
	entry := model.WorkspaceActivity{WorkspaceID: workspaceID, UserID: userID, Action: action, Detail: detail}
	if err := s.db.Create(&entry).Error; err != nil {
		s.log.Warn("Failed to write activity entry", zap.String("action", action), zap.Error(err))
	}
}

func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
