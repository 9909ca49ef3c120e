package utils

import (
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"

	"salescrm/config"
)

// CampaignMessage is one personalized outgoing campaign email
type CampaignMessage struct {
	To        string
	FromName  string
	FromEmail string
	Subject   string
	HTMLBody  string
	MessageID string
}

// CampaignMailer delivers campaign emails over SMTP with open and click
// tracking injected into the body.
type CampaignMailer struct {
	dialer  *gomail.Dialer
	baseURL string
}

func NewCampaignMailer() *CampaignMailer {
	cfg := config.AppConfig
	return &CampaignMailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		baseURL: cfg.AppURL,
	}
}

// ValidateRecipient checks the address format before attempting delivery
func (m *CampaignMailer) ValidateRecipient(email string) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", email, err)
	}
	return nil
}

// Send delivers one campaign message. The caller is responsible for
// recording the engagement transition (sent or failed).
func (m *CampaignMailer) Send(msg CampaignMessage) error {
	if err := m.ValidateRecipient(msg.To); err != nil {
		return err
	}

	body := InjectTracking(msg.HTMLBody, m.baseURL, msg.MessageID)

	gm := gomail.NewMessage()
	gm.SetHeader("From", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", fmt.Sprintf("<%s>", msg.MessageID))
	gm.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// PersonalizeTemplate substitutes recipient merge tags in campaign content.
// Supported tags: {{first_name}}, {{last_name}}, {{full_name}}, {{company}}.
func PersonalizeTemplate(content, firstName, lastName, company string) string {
	fullName := strings.TrimSpace(firstName + " " + lastName)
	r := strings.NewReplacer(
		"{{first_name}}", firstName,
		"{{last_name}}", lastName,
		"{{full_name}}", fullName,
		"{{company}}", company,
	)
	return r.Replace(content)
}
