package services

import (
	"fmt"
	"time"

	"affiliate-api/internal/config"
	"affiliate-api/internal/database"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"

	"gorm.io/gorm"
)

// AffiliateService provides affiliate enrollment and lifecycle operations
type AffiliateService struct {
	codeService *CodeService
	notifier    *NotificationService
}

// NewAffiliateService creates a new affiliate service
func NewAffiliateService() *AffiliateService {
	return &AffiliateService{
		codeService: NewCodeService(),
		notifier:    NewNotificationService(),
	}
}

// Enroll 注册推广账户，初始状态 pending，等待管理员审核
func (s *AffiliateService) Enroll(userID, paymentEmail, paymentMethod string) (*models.Affiliate, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	// Each user gets at most one affiliate account
	if existing, err := database.GetAffiliateByUserID(userID); err == nil {
		return nil, fmt.Errorf("user %s is already enrolled with code %s", userID, existing.AffiliateCode)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	code, err := s.codeService.UniqueAffiliateCode()
	if err != nil {
		return nil, err
	}

	affiliate := &models.Affiliate{
		UserID:        userID,
		AffiliateCode: code,
		ProgramID:     "default",
		Status:        models.AffiliateStatusPending,
		PaymentEmail:  paymentEmail,
		PaymentMethod: paymentMethod,
	}

	if err := database.CreateAffiliate(affiliate); err != nil {
		return nil, fmt.Errorf("failed to create affiliate: %w", err)
	}

	logging.Infof("Affiliate enrolled - user: %s, code: %s", userID, code)
	return affiliate, nil
}

// Approve 审核通过 pending → active，之后才允许累计佣金
func (s *AffiliateService) Approve(affiliateID uint) (*models.Affiliate, error) {
	affiliate, err := database.GetAffiliateByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate.Status != models.AffiliateStatusPending {
		return nil, fmt.Errorf("affiliate %d is %s, only pending affiliates can be approved", affiliateID, affiliate.Status)
	}

	now := time.Now()
	if err := database.UpdateAffiliateStatus(affiliateID, models.AffiliateStatusActive, &now); err != nil {
		return nil, err
	}
	affiliate.Status = models.AffiliateStatusActive
	affiliate.ApprovedAt = &now

	logging.Infof("Affiliate approved - id: %d, code: %s", affiliateID, affiliate.AffiliateCode)

	// Notify asynchronously, approval must not wait on email delivery
	go s.notifier.SendApprovalEmail(affiliate)

	return affiliate, nil
}

// Suspend 管理员暂停，暂停后不再累计新佣金
func (s *AffiliateService) Suspend(affiliateID uint) error {
	return s.setAdministrativeStatus(affiliateID, models.AffiliateStatusSuspended)
}

// Terminate 管理员终止（终态）
func (s *AffiliateService) Terminate(affiliateID uint) error {
	return s.setAdministrativeStatus(affiliateID, models.AffiliateStatusTerminated)
}

func (s *AffiliateService) setAdministrativeStatus(affiliateID uint, status string) error {
	affiliate, err := database.GetAffiliateByID(affiliateID)
	if err != nil {
		return err
	}
	if affiliate.Status == models.AffiliateStatusTerminated {
		return fmt.Errorf("affiliate %d is terminated", affiliateID)
	}
	if err := database.UpdateAffiliateStatus(affiliateID, status, nil); err != nil {
		return err
	}
	logging.Infof("Affiliate status changed - id: %d, status: %s", affiliateID, status)
	return nil
}

// GetProfile 获取推广账户信息（含派生的推广链接）
func (s *AffiliateService) GetProfile(userID string) (*AffiliateProfile, error) {
	affiliate, err := database.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, err
	}
	return &AffiliateProfile{
		Affiliate:    affiliate,
		ReferralLink: affiliate.ReferralLink(config.AppConfig.ReferralBaseURL),
	}, nil
}

// AffiliateProfile is an affiliate with its derived referral link
type AffiliateProfile struct {
	*models.Affiliate
	ReferralLink string `json:"referral_link"`
}

// ResolveCommissionRate 解析佣金比例：账户覆盖值 → 所属计划 → 全局默认
func (s *AffiliateService) ResolveCommissionRate(affiliate *models.Affiliate) float64 {
	if affiliate.CommissionRate != nil {
		return *affiliate.CommissionRate
	}
	if affiliate.ProgramID != "" {
		if program, err := database.GetProgramByID(affiliate.ProgramID); err == nil {
			return program.CommissionRate
		}
	}
	return config.AppConfig.DefaultCommissionRate
}

// ResolveBillingPeriodDays 解析账单周期长度：所属计划 → 全局默认
func (s *AffiliateService) ResolveBillingPeriodDays(affiliate *models.Affiliate) int {
	if affiliate.ProgramID != "" {
		if program, err := database.GetProgramByID(affiliate.ProgramID); err == nil {
			return program.BillingPeriodDays
		}
	}
	return config.AppConfig.CommissionPeriodDays
}
