package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

const resendAPIURL = "https://api.resend.com/emails"

type EmailService struct {
	APIKey      string
	FromEmail   string
	FrontendURL string
	BaseURL     string
	Client      *http.Client
}

func NewEmailService(apiKey, fromEmail, frontendURL string) *EmailService {
	return &EmailService{
		APIKey:      apiKey,
		FromEmail:   fromEmail,
		FrontendURL: frontendURL,
		BaseURL:     resendAPIURL,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether an API key is configured.
func (s *EmailService) Enabled() bool {
	return s != nil && s.APIKey != ""
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

var welcomeEmailTemplate = template.Must(template.New("welcome").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1d4ed8; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; }
        .button { display: inline-block; background: #1d4ed8; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>💰 Bienvenido a Gastos</h1>
        </div>
        <div class="content">
            <p>Hola {{.Name}},</p>
            <p>Tu cuenta está lista. Ya puedes registrar tus gastos y ver el resumen de cada mes.</p>
            <a href="{{.LoginURL}}" class="button">Iniciar sesión</a>
        </div>
    </div>
</body>
</html>
`))

// SendWelcome sends the post-registration email.
func (s *EmailService) SendWelcome(ctx context.Context, to, name string) error {
	if !s.Enabled() {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	var body bytes.Buffer
	err := welcomeEmailTemplate.Execute(&body, struct {
		Name     string
		LoginURL string
	}{
		Name:     name,
		LoginURL: s.FrontendURL,
	})
	if err != nil {
		return fmt.Errorf("render welcome email: %w", err)
	}

	return s.send(ctx, to, "Bienvenido a Gastos", body.String())
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	jsonData, err := json.Marshal(emailRequest{
		From:    s.FromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}
	return nil
}
