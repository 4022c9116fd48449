package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/motohub/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// Config holds mail provider settings.
type Config struct {
	Enable    bool   `json:"enable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	From      string `json:"from"`
	ReplyTo   string `json:"reply_to"`
	UseResend bool   `json:"use_resend"`
	ResendKey string `json:"resend_key"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP or Resend, inline or through the Redis
// task queue (see queue.go).
type Sender struct {
	cfg Config
	tq  *taskqueue.Service
	log *zap.Logger
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) sendSMTP(msg Message) error {
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(msg Message) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const verifyEmailTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Welcome to {{.SiteName}}, {{.Name}}!</h2>
  <p>Confirm your email address to activate your account:</p>
  <p style="margin-top:24px">
    <a href="{{.VerifyURL}}" target="_blank" style="background:#e8590c;color:#fff;padding:10px 20px;text-decoration:none;border-radius:4px;font-weight:600">Verify email</a>
  </p>
  <p style="color:#999;font-size:12px">If you didn't create an account, you can safely ignore this email.</p>
  <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
  <p style="font-size:10px;line-height:24px;text-align:center;color:rgb(156,163,175)">This is an automated message, please do not reply.<br />&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const passwordResetTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Password reset</h2>
  <p>Hi {{.Name}}, we received a request to reset your password. The link below expires in {{.ExpiresIn}}:</p>
  <p style="margin-top:24px">
    <a href="{{.ResetURL}}" target="_blank" style="background:#e8590c;color:#fff;padding:10px 20px;text-decoration:none;border-radius:4px;font-weight:600">Reset password</a>
  </p>
  <p style="color:#999;font-size:12px">If you didn't request this, your account is still safe and no action is needed.</p>
  <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
  <p style="font-size:10px;line-height:24px;text-align:center;color:rgb(156,163,175)">This is an automated message, please do not reply.<br />&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const bookingStatusTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Booking update</h2>
  <p>Hi {{.Name}}, your booking at <strong>{{.GarageName}}</strong> is now <strong>{{.Status}}</strong>.</p>
  <table style="background:#f3f4f6;border-radius:8px;padding:12px;width:100%;font-size:14px">
    <tbody>
      <tr><td style="padding:4px 12px;color:#666">Service</td><td style="padding:4px 12px">{{.ServiceType}}</td></tr>
      <tr><td style="padding:4px 12px;color:#666">Date</td><td style="padding:4px 12px">{{.StartDate}}</td></tr>
      {{if .Reason}}<tr><td style="padding:4px 12px;color:#666">Reason</td><td style="padding:4px 12px">{{.Reason}}</td></tr>{{end}}
    </tbody>
  </table>
  <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
  <p style="font-size:10px;line-height:24px;text-align:center;color:rgb(156,163,175)">This is an automated message, please do not reply.<br />&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

// VerifyEmailData is the data for account verification emails.
type VerifyEmailData struct {
	Name      string
	VerifyURL string
	SiteName  string
}

// PasswordResetData is the data for password reset emails.
type PasswordResetData struct {
	Name      string
	ResetURL  string
	ExpiresIn string
	SiteName  string
}

// BookingStatusData is the data for booking status notification emails.
type BookingStatusData struct {
	Name        string
	GarageName  string
	ServiceType string
	StartDate   string
	Status      string
	Reason      string
	SiteName    string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const defaultSiteName = "MotoHub"

// SendVerifyEmail sends an account verification email to a new user.
func (s *Sender) SendVerifyEmail(to string, data VerifyEmailData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = defaultSiteName
	}
	html, err := renderTemplate(verifyEmailTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Verify your email address", data.SiteName),
		HTML:    html,
	})
}

// SendPasswordReset sends a password reset link.
func (s *Sender) SendPasswordReset(to string, data PasswordResetData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = defaultSiteName
	}
	if strings.TrimSpace(data.ExpiresIn) == "" {
		data.ExpiresIn = "1 hour"
	}
	html, err := renderTemplate(passwordResetTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Reset your password", data.SiteName),
		HTML:    html,
	})
}

// SendBookingStatus notifies a user that their booking changed state.
func (s *Sender) SendBookingStatus(to string, data BookingStatusData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = defaultSiteName
	}
	html, err := renderTemplate(bookingStatusTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Your booking is %s", data.SiteName, data.Status),
		HTML:    html,
	})
}
