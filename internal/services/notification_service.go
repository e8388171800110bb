package services

import (
	"context"
	"fmt"

	"affiliate-api/internal/config"
	"affiliate-api/internal/models"
	"affiliate-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// NotificationService sends affiliate lifecycle emails via Brevo.
// All sends are best-effort: callers fire them in goroutines and
// failures are only logged, never surfaced.
type NotificationService struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewNotificationService creates a new notification service
func NewNotificationService() *NotificationService {
	cfg := brevo.NewConfiguration()
	if config.AppConfig != nil && config.AppConfig.BrevoAPIKey != "" {
		cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)
	}

	svc := &NotificationService{
		client: brevo.NewAPIClient(cfg),
	}
	if config.AppConfig != nil {
		svc.fromEmail = config.AppConfig.BrevoFromEmail
		svc.fromName = config.AppConfig.BrevoFromName
	}
	return svc
}

// enabled reports whether email sending is configured
func (s *NotificationService) enabled() bool {
	return config.AppConfig != nil && config.AppConfig.BrevoAPIKey != "" && s.fromEmail != ""
}

// SendApprovalEmail 审核通过通知
func (s *NotificationService) SendApprovalEmail(affiliate *models.Affiliate) {
	if !s.enabled() || affiliate.PaymentEmail == "" {
		return
	}

	link := affiliate.ReferralLink(config.AppConfig.ReferralBaseURL)
	subject := fmt.Sprintf("%s - 推广账户已开通", config.AppConfig.ServiceName)
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #333;">推广账户已开通</h1>
			<p style="color: #666;">您的推广账户审核已通过，现在开始可以累计佣金。</p>
			<p style="color: #666;">您的专属推广链接：</p>
			<p style="background-color: #f8f9fa; padding: 15px; border-radius: 8px; font-size: 16px;">%s</p>
		</div>
	`, link)
	text := fmt.Sprintf("推广账户已开通。您的专属推广链接：%s", link)

	s.send(affiliate.PaymentEmail, subject, html, text)
}

// SendCommissionEmail 首笔佣金到账通知
func (s *NotificationService) SendCommissionEmail(affiliate *models.Affiliate, txn *models.CommissionTransaction) {
	if !s.enabled() || affiliate.PaymentEmail == "" {
		return
	}

	subject := fmt.Sprintf("%s - 新佣金入账", config.AppConfig.ServiceName)
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #333;">新佣金入账</h1>
			<p style="color: #666;">您推荐的用户完成了付费订阅，佣金已计入待结算余额。</p>
			<p style="background-color: #007bff; color: white; padding: 15px; border-radius: 8px; font-size: 24px; text-align: center;">%.2f %s</p>
		</div>
	`, txn.Amount, txn.Currency)
	text := fmt.Sprintf("新佣金入账：%.2f %s，已计入待结算余额。", txn.Amount, txn.Currency)

	s.send(affiliate.PaymentEmail, subject, html, text)
}

// send sends one transactional email via the Brevo API
func (s *NotificationService) send(to, subject, htmlContent, textContent string) {
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: to},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	_, _, err := s.client.TransactionalEmailsApi.SendTransacEmail(context.Background(), email)
	if err != nil {
		logging.Errorf("Failed to send notification email - to: %s, subject: %s, error: %v", to, subject, err)
		return
	}
	logging.Infof("Notification email sent - to: %s, subject: %s", to, subject)
}
