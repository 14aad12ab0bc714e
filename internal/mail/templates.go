package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// ShareNotice describes a file shared with a recipient.
type ShareNotice struct {
	SenderName  string
	SenderEmail string
	FileName    string
	Link        string
}

// SenderLine is the headline of the share notification.
func (n ShareNotice) SenderLine() string {
	name := n.SenderName
	if name == "" {
		name = "Someone"
	}
	if n.SenderEmail == "" {
		return name + " has shared a file with you"
	}
	return fmt.Sprintf("%s (%s) has shared a file with you", name, n.SenderEmail)
}

// Badge is the upper-cased extension shown as the file icon.
func (n ShareNotice) Badge() string {
	i := strings.LastIndex(n.FileName, ".")
	if i < 0 {
		return ""
	}
	return strings.ToUpper(n.FileName[i+1:])
}

// OTPMessage renders the one-time code email.
func OTPMessage(to, code string, ttlMinutes int) (Message, error) {
	data := map[string]any{"Code": code, "TTL": ttlMinutes}
	return render(to, "Your StoreIt verification code", "otp", data)
}

// RecoveryMessage renders the password reset email.
func RecoveryMessage(to, link string) (Message, error) {
	return render(to, "Reset your StoreIt password", "recovery", map[string]any{"Link": link})
}

// ShareMessage renders the "file shared with you" email.
func ShareMessage(to string, n ShareNotice) (Message, error) {
	return render(to, n.FileName+" shared with you", "shared", n)
}

func render(to, subject, name string, data any) (Message, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
