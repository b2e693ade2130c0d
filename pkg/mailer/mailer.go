package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Mailer sends transactional email through the SendGrid v3 mail API. When no
// API key is configured it silently drops messages, which keeps local
// development working without an account.
type Mailer struct {
	apiKey     string
	fromEmail  string
	endpoint   string
	httpClient *http.Client
}

func New(apiKey, fromEmail string) *Mailer {
	return &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		endpoint:  defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.apiKey == "" {
		return nil
	}

	payload := sgMailPayload{
		Personalizations: []sgPersonalization{{
			To: []sgAddress{{Email: to}},
		}},
		From:    sgAddress{Email: m.fromEmail},
		Subject: subject,
		Content: []sgContent{{Type: "text/plain", Value: body}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(data))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("mail send returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SendImportComplete notifies a user that their CSV import finished.
func (m *Mailer) SendImportComplete(ctx context.Context, to, source string, count int) error {
	subject := "Your import is done"
	body := fmt.Sprintf("Your import of %d books from %s is done.", count, source)
	return m.Send(ctx, to, subject, body)
}

// SendSignupNotification tells the admin that a new account was created.
func (m *Mailer) SendSignupNotification(ctx context.Context, adminEmail, userEmail string) error {
	if adminEmail == "" {
		return nil
	}
	subject := "New signup"
	body := fmt.Sprintf("A new account was just created for %s.", userEmail)
	return m.Send(ctx, adminEmail, subject, body)
}

// SendGrid v3 Mail Send API payload types.
type sgMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
