package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"famportal/apperr"
	"famportal/models"
	"famportal/notify"
	"famportal/policy"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HeartbeatInterval is the minimum gap between two last_active_at writes
// for the same user.
const HeartbeatInterval = time.Minute

const MinPasswordLength = 6

type MemberService struct {
	Deps
	audit *AuditService
	gate  touchGate
}

func newMemberService(d Deps, audit *AuditService) *MemberService {
	var gate touchGate = newMemoryGate()
	if d.Redis != nil {
		gate = redisGate{rdb: d.Redis}
	}
	return &MemberService{Deps: d, audit: audit, gate: gate}
}

type RegisterInput struct {
	Name            string
	StaticID        string
	Password        string
	ApplicationNote string
}

// Register files a membership application. New members start PENDING
// unless auto approval is switched on.
func (s *MemberService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.StaticID = strings.TrimSpace(in.StaticID)
	in.ApplicationNote = strings.TrimSpace(in.ApplicationNote)
	switch {
	case in.Name == "":
		return nil, apperr.Validation("name is required")
	case in.StaticID == "":
		return nil, apperr.Validation("static_id is required")
	case len(in.Password) < MinPasswordLength:
		return nil, apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	var u models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := loadSettings(tx)
		if err != nil {
			return err
		}
		if settings.ClosedRegister {
			return apperr.Forbidden("registration is closed")
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("static_id = ?", in.StaticID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("static id is already registered")
		}
		u = models.User{
			Name:            in.Name,
			StaticID:        in.StaticID,
			Role:            models.RoleMember,
			Status:          models.UserPending,
			Rank:            1,
			ApplicationNote: in.ApplicationNote,
		}
		if settings.AutoApprove {
			u.Status = models.UserActive
		}
		if err := u.SetPassword(in.Password); err != nil {
			return err
		}
		if err := tx.Create(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("static id is already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(notify.Message{
		Event: notify.EventMemberApplied,
		Title: "New membership application",
		Text:  u.ApplicationNote,
		Fields: map[string]string{
			"name":      u.Name,
			"static_id": u.StaticID,
			"status":    u.Status,
		},
	})
	return &u, nil
}

// Authenticate checks a static id and password. Unknown ids and wrong
// passwords are indistinguishable to the caller; banned members are refused.
// On a wrong password the user is returned with the error so callers can
// count failed attempts.
func (s *MemberService) Authenticate(ctx context.Context, staticID, password string) (*models.User, error) {
	u, err := s.ByStaticID(ctx, staticID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid static id or password")
		}
		return nil, err
	}
	if !u.CheckPassword(password) {
		return u, apperr.Unauthorized("invalid static id or password")
	}
	if u.Status == models.UserBanned {
		return nil, apperr.Forbidden("account is banned")
	}
	return u, nil
}

func (s *MemberService) ByStaticID(ctx context.Context, staticID string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("static_id = ?", strings.TrimSpace(staticID)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MemberService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Principal resolves the current role and status of id. Called once per
// authenticated request so role and ban changes apply immediately.
func (s *MemberService) Principal(ctx context.Context, id uint) (*policy.Principal, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Select("id", "role", "status", "rank").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return &policy.Principal{ID: u.ID, Role: u.Role, Status: u.Status, Rank: u.Rank}, nil
}

type MemberFilter struct {
	Status string
	Role   string
	Search string
	Page
}

func (s *MemberService) List(ctx context.Context, f MemberFilter) ([]models.User, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if f.Status != "" {
		q = q.Where("status = ?", strings.ToUpper(f.Status))
	}
	if f.Role != "" {
		q = q.Where("role = ?", strings.ToUpper(f.Role))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("name LIKE ? OR static_id LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := f.normalize()
	var out []models.User
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// Review decides a PENDING application.
func (s *MemberService) Review(ctx context.Context, actorID, userID uint, approve bool, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	status := models.UserActive
	if !approve {
		status = models.UserRejected
	}
	u, err := s.transition(ctx, userID, []string{models.UserPending}, status, reason)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditMemberReviewed, actorID, ptr(u.ID), fmt.Sprintf("status=%s %s", status, reason))
	return u, nil
}

// SetBanned bans or unbans userID. Staff cannot ban themselves and only
// admins may ban other staff.
func (s *MemberService) SetBanned(ctx context.Context, actor *policy.Principal, userID uint, banned bool, reason string) (*models.User, error) {
	if actor == nil || actor.ID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	if actor.ID == userID {
		return nil, apperr.Forbidden("you cannot ban yourself")
	}
	target, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsStaff() && actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only admins can ban staff")
	}

	var u *models.User
	if banned {
		u, err = s.transition(ctx, userID, []string{models.UserPending, models.UserActive, models.UserRejected}, models.UserBanned, strings.TrimSpace(reason))
	} else {
		u, err = s.transition(ctx, userID, []string{models.UserBanned}, models.UserActive, "")
	}
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditMemberBan, actor.ID, ptr(u.ID), fmt.Sprintf("banned=%t %s", banned, strings.TrimSpace(reason)))
	return u, nil
}

func (s *MemberService) transition(ctx context.Context, userID uint, from []string, to, reason string) (*models.User, error) {
	var u *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = lockUser(tx, userID); err != nil {
			return err
		}
		allowed := false
		for _, st := range from {
			if u.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperr.Conflict(fmt.Sprintf("member is %s", strings.ToLower(u.Status)))
		}
		u.Status = to
		u.RejectionReason = reason
		return tx.Model(u).Updates(map[string]interface{}{
			"status":           to,
			"rejection_reason": reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetRole changes a member's role. Nobody can change their own role.
func (s *MemberService) SetRole(ctx context.Context, actorID, userID uint, role string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	switch role {
	case models.RoleMember, models.RoleModerator, models.RoleAdmin:
	default:
		return nil, apperr.Validation("role must be MEMBER, MODERATOR or ADMIN")
	}
	if actorID == userID {
		return nil, apperr.Forbidden("you cannot change your own role")
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("role", role).Error; err != nil {
		return nil, err
	}
	prev := u.Role
	u.Role = role
	s.audit.Record(ctx, AuditMemberRole, actorID, ptr(u.ID), prev+" -> "+role)
	return u, nil
}

func (s *MemberService) SetRank(ctx context.Context, actorID, userID uint, rank int) (*models.User, error) {
	if rank < 1 {
		return nil, apperr.Validation("rank must be at least 1")
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("rank", rank).Error; err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditMemberRank, actorID, ptr(u.ID), fmt.Sprintf("%d -> %d", u.Rank, rank))
	u.Rank = rank
	return u, nil
}

type ProfileInput struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}

func (s *MemberService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = name
		u.Name = name
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if avatar == "" {
			updates["avatar"] = nil
			u.Avatar = nil
		} else {
			if parsed, err := url.ParseRequestURI(avatar); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return nil, apperr.Validation("avatar must be an http(s) URL")
			}
			updates["avatar"] = avatar
			u.Avatar = &avatar
		}
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		updates["bio"] = bio
		u.Bio = bio
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (s *MemberService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.CheckPassword(current) {
		return apperr.Validation("current password is incorrect")
	}
	if err := u.SetPassword(next); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(u).Update("password", u.Password).Error
}

// EnsureAdmin creates or promotes an ACTIVE admin with the given static id.
func (s *MemberService) EnsureAdmin(ctx context.Context, staticID, name, password string) (*models.User, error) {
	staticID = strings.TrimSpace(staticID)
	name = strings.TrimSpace(name)
	if staticID == "" || name == "" {
		return nil, apperr.Validation("static id and name are required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	var u models.User
	err := s.DB.WithContext(ctx).Where("static_id = ?", staticID).First(&u).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u.StaticID = staticID
	u.Name = name
	u.Role = models.RoleAdmin
	u.Status = models.UserActive
	if u.Rank < 1 {
		u.Rank = 1
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Touch records activity for userID at most once per HeartbeatInterval.
func (s *MemberService) Touch(ctx context.Context, userID uint) {
	if userID == 0 || !s.gate.allow(ctx, userID, s.now()) {
		return
	}
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_active_at", s.now()).Error
	if err != nil {
		s.Logger.Warn("heartbeat write failed", "user_id", userID, "err", err)
	}
}

type touchGate interface {
	allow(ctx context.Context, userID uint, now time.Time) bool
}

type redisGate struct {
	rdb redis.UniversalClient
}

func (g redisGate) allow(ctx context.Context, userID uint, _ time.Time) bool {
	ok, err := g.rdb.SetNX(ctx, fmt.Sprintf("heartbeat:u:%d", userID), 1, HeartbeatInterval).Result()
	if err != nil {
		// without redis we still record activity, just unthrottled
		return true
	}
	return ok
}

type memoryGate struct {
	mu   sync.Mutex
	last map[uint]time.Time
}

func newMemoryGate() *memoryGate {
	return &memoryGate{last: make(map[uint]time.Time)}
}

func (g *memoryGate) allow(_ context.Context, userID uint, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.last[userID]; ok && now.Sub(prev) < HeartbeatInterval {
		return false
	}
	g.last[userID] = now
	if len(g.last) > 10000 {
		for id, t := range g.last {
			if now.Sub(t) >= HeartbeatInterval {
				delete(g.last, id)
			}
		}
	}
	return true
}
