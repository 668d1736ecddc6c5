package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"familytasks/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// sesAPI is the subset of the SES client used to send mail
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// InvitationEmail carries what the invitation email needs to render
type InvitationEmail struct {
	To          string
	FamilyName  string
	InviterName string
	Role        models.Role
	Token       string
	ExpiresAt   time.Time
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	log        *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool, log *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		log.Info("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Debug("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{
			appBaseURL: appBaseURL,
			enabled:    false,
			debug:      debug,
			log:        log,
		}, nil
	}

	if debug {
		log.Debug("[DEBUG] Initializing email service with AWS SES",
			zap.String("region", awsRegion),
			zap.String("from_email", fromEmail),
			zap.String("from_name", fromName),
			zap.String("app_base_url", appBaseURL),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("Email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))

	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug, log), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, debug bool, log *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// InvitationLink returns the acceptance link embedding token
func (s *EmailService) InvitationLink(token string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s", s.appBaseURL, url.QueryEscape(token))
}

// SendFamilyInvitation emails an invitation with its acceptance link
func (s *EmailService) SendFamilyInvitation(ctx context.Context, inv InvitationEmail) error {
	if s.debug {
		s.log.Debug("[DEBUG] SendFamilyInvitation called", zap.String("to", inv.To), zap.String("family", inv.FamilyName))
	}

	if !s.enabled {
		s.log.Info("Skipping email send (service disabled): family invitation", zap.String("to", inv.To))
		return nil
	}

	link := s.InvitationLink(inv.Token)
	expires := inv.ExpiresAt.UTC().Format("January 2, 2006")
	inviter := inv.InviterName
	if inviter == "" {
		inviter = "A family member"
	}

	subject := fmt.Sprintf("You're invited to join %s on Family Tasks", inv.FamilyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #3b8a5a; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3b8a5a; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Family Invitation</h1>
		</div>
		<div class="content">
			<p>Hi,</p>
			<p>%s has invited you to join <strong>%s</strong> as a %s.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Accept Invitation</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This invitation expires on %s.</strong></p>
			<p>You will need to sign in as %s to accept it.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Family Tasks. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`,
		html.EscapeString(inviter),
		html.EscapeString(inv.FamilyName),
		html.EscapeString(string(inv.Role)),
		html.EscapeString(link),
		html.EscapeString(link),
		expires,
		html.EscapeString(inv.To),
	)

	textBody := fmt.Sprintf(`Hi,

%s has invited you to join %s as a %s.

Accept the invitation here:
%s

This invitation expires on %s. You will need to sign in as %s to accept it.

---
This is an automated email from Family Tasks. Please do not reply.
`, inviter, inv.FamilyName, inv.Role, link, expires, inv.To)

	return s.sendEmail(ctx, inv.To, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.log.Info("Skipping email send (service disabled): welcome", zap.String("to", toEmail))
		return nil
	}

	subject := "Welcome to Family Tasks!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3b8a5a; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<div class="content">
			<p>Hi %s,</p>
			<p>Your Family Tasks account is ready. Create a family, invite the people you live with and start sharing chores.</p>
			<p style="text-align: center;">
				<a href="%s/login" class="button">Get Started</a>
			</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(toName), html.EscapeString(s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your Family Tasks account is ready. Create a family, invite the people you live with and start sharing chores.

Get started: %s/login
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		s.log.Debug("[DEBUG] Sending email",
			zap.String("from", fromAddress),
			zap.String("to", toEmail),
			zap.String("subject", subject),
			zap.Int("html_bytes", len(htmlBody)),
			zap.Int("text_bytes", len(textBody)),
		)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			s.log.Debug("[DEBUG] SES SendEmail failed", zap.Error(err))
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		s.log.Debug("[DEBUG] SES SendEmail succeeded", zap.String("message_id", *result.MessageId))
	}

	s.log.Info("Email sent successfully", zap.String("to", toEmail), zap.String("subject", subject))
	return nil
}
