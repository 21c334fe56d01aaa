package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// Client sends transactional mail through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient returns a Postmark client. baseURL is the public app address
// used to build links in messages.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// SendPasswordReset mails a one-hour reset link.
func (c *Client) SendPasswordReset(toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.baseURL, url.QueryEscape(token))
	return c.send(postmarkEmail{
		To:       toEmail,
		Subject:  "Reset your TidyTap password",
		TextBody: fmt.Sprintf("Someone asked to reset your TidyTap password. Use the link below to choose a new one:\n\n%s\n\nThis link expires in 1 hour. If you did not ask for this, ignore this email.", link),
		HtmlBody: fmt.Sprintf(
			`<p>Someone asked to reset your TidyTap password.</p><p><a href="%s">Choose a new password</a></p><p>This link expires in 1 hour. If you did not ask for this, ignore this email.</p>`,
			html.EscapeString(link),
		),
		Tag: "password-reset",
	})
}

// SendInvite mails a household's invite code to a prospective helper.
func (c *Client) SendInvite(toEmail, inviterName, householdName, inviteCode string) error {
	link := fmt.Sprintf("%s/register?code=%s", c.baseURL, url.QueryEscape(inviteCode))
	return c.send(postmarkEmail{
		To:      toEmail,
		Subject: fmt.Sprintf("%s invited you to %s on TidyTap", inviterName, householdName),
		TextBody: fmt.Sprintf("%s invited you to help out in %s.\n\nSign up as a helper with invite code %s:\n\n%s",
			inviterName, householdName, inviteCode, link),
		HtmlBody: fmt.Sprintf(
			`<p>%s invited you to help out in %s.</p><p>Your invite code is <strong>%s</strong>.</p><p><a href="%s">Join the household</a></p>`,
			html.EscapeString(inviterName), html.EscapeString(householdName), html.EscapeString(inviteCode), html.EscapeString(link),
		),
		Tag: "invite",
	})
}

func (c *Client) send(msg postmarkEmail) error {
	if !c.Configured() {
		return apperr.New(apperr.KindExternal, "email is not configured")
	}
	msg.From = c.fromEmail

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindExternal, "could not send email", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperr.Wrap(apperr.KindExternal, "could not send email",
			fmt.Errorf("postmark API error: status %d", resp.StatusCode))
	}
	return nil
}
