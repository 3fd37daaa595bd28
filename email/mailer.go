package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// Sender dispatches mails.
type Sender interface {
	Send(m *Mail) error
}

// Mailer vends email dispatch logic via SSL/TLS only.
type Mailer struct {
	Addr string // address of smtp server in host:port format
	// usually smtp server will publicize the auth extension they support, so let client decide this
	Auth smtp.Auth
	// Timeout bounds dialing the smtp server; zero means 10 seconds
	Timeout       time.Duration
	skipTLSVerify bool // NOTE only set to true during testing
}

// NewMailer returns a Mailer authenticating with PLAIN auth when username is not empty.
func NewMailer(addr, username, passwd string) (*Mailer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp server address %s is invalid: %w", addr, err)
	}
	ml := &Mailer{Addr: addr}
	if username != "" {
		ml.Auth = smtp.PlainAuth("", username, passwd, host)
	}
	return ml, nil
}

// Mail encapsulates email details necessary for dispatch
type Mail struct {
	From                       mail.Address
	To                         []mail.Address
	Subj, ContentType, Content string
}

// Send sends the given email via SSL/TLS.
func (ml *Mailer) Send(m *Mail) error {
	c, err := ml.newTLSClient()
	if err != nil {
		return fmt.Errorf("error creating TLS smtp client: %w", err)
	}
	defer c.Close()
	// auth
	if ml.Auth != nil {
		if ok, exts := c.Extension("AUTH"); ok {
			if err := c.Auth(ml.Auth); err != nil {
				return fmt.Errorf("error authenticating client: %w. smtp server at %s supports AUTH extensions [%s]", err, ml.Addr, exts)
			}
		} else {
			// never disclose client's auth details to untrusted network
			return fmt.Errorf("smtp server at %s has no auth support", ml.Addr)
		}
	}
	// prepare email transaction
	if err := c.Mail(m.From.Address); err != nil {
		return fmt.Errorf("error executing MAIL command with smtp server at %s: %w", ml.Addr, err)
	}
	for _, t := range m.To {
		if err := c.Rcpt(t.Address); err != nil {
			return fmt.Errorf("error executing RCPT command with smtp server at %s: %w", ml.Addr, err)
		}
	}
	// write actual email content to server
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("error executing DATA command with smtp server at %s: %w", ml.Addr, err)
	}
	if _, err := w.Write([]byte(compose(m))); err != nil {
		w.Close()
		return fmt.Errorf("error writing email data to smtp server at %s: %w", ml.Addr, err)
	}
	// the server only accepts the message once the writer is closed
	if err := w.Close(); err != nil {
		return fmt.Errorf("error finishing email data with smtp server at %s: %w", ml.Addr, err)
	}
	return c.Quit()
}

func (ml *Mailer) newTLSClient() (*smtp.Client, error) {
	host, _, err := net.SplitHostPort(ml.Addr)
	if err != nil {
		return nil, fmt.Errorf("smtp server address %s is invalid: %w", ml.Addr, err)
	}
	tlsCfg := &tls.Config{
		InsecureSkipVerify: ml.skipTLSVerify,
		ServerName:         host,
	}
	timeout := ml.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", ml.Addr, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("error dialing %s via TLS: %w", ml.Addr, err)
	}
	return smtp.NewClient(conn, host)
}

func compose(m *Mail) string {
	to := make([]string, len(m.To))
	for i, t := range m.To {
		// NOTE must format the mail address explicitly by calling String() otherwise it uses default format
		to[i] = t.String()
	}
	headers := [][2]string{
		{"From", m.From.String()},
		{"To", strings.Join(to, ",")},
		{"Subject", mime.QEncoding.Encode("utf-8", m.Subj)},
		{"MIME-Version", "1.0"},
		{"Content-Type", m.ContentType},
	}
	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	fmt.Fprint(&b, "\r\n")
	fmt.Fprint(&b, m.Content)
	return b.String()
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<p>Hi {{.CreatorName}},</p>
<p>Your Valentine's Day experience for {{.RecipientName}} is ready.</p>
<p>Link: <a href="{{.URL}}">{{.URL}}</a><br>PIN: <b>{{.PIN}}</b></p>
<p>Share the link and the PIN with {{.RecipientName}}.{{if .ExpiresAt}} The page stays available until {{.ExpiresAt}}.{{end}}</p>
</body></html>`))

// Confirmation carries what the creator needs to share an experience.
type Confirmation struct {
	CreatorName   string
	CreatorEmail  string
	RecipientName string
	URL           string
	PIN           string
	ExpiresAt     string
}

// NewConfirmationMail composes the mail telling the creator how to share the experience.
func NewConfirmationMail(from mail.Address, c *Confirmation) (*Mail, error) {
	var b bytes.Buffer
	if err := confirmationTmpl.Execute(&b, c); err != nil {
		return nil, fmt.Errorf("error rendering confirmation mail: %w", err)
	}
	return &Mail{
		From:        from,
		To:          []mail.Address{{Name: c.CreatorName, Address: c.CreatorEmail}},
		Subj:        fmt.Sprintf("Your Valentine for %s is ready", c.RecipientName),
		ContentType: `text/html; charset="UTF-8"`,
		Content:     b.String(),
	}, nil
}
