package service

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/rundownapp/rundown/internal/markdown"
)

//go:embed emails/*.md
var emailsFS embed.FS

var emailTemplates = template.Must(template.ParseFS(emailsFS, "emails/*.md"))

type emailData struct {
	AppName     string
	AppURL      string
	ContactName string
	OwnerName   string
	OptOutURL   string
}

type renderedEmail struct {
	Subject string
	Text    string
	HTML    string
}

// renderEmailTemplate executes a markdown email and splits it into subject (from front matter), text and HTML.
func renderEmailTemplate(renderer *markdown.Renderer, name string, data emailData) (*renderedEmail, error) {
	var src bytes.Buffer
	err := emailTemplates.ExecuteTemplate(&src, name, data)
	if err != nil {
		return nil, fmt.Errorf("execute email template %s: %w", name, err)
	}

	doc, err := renderer.Document(src.Bytes())
	if err != nil {
		return nil, fmt.Errorf("email template %s: %w", name, err)
	}
	subject := doc.String("subject")
	if subject == "" {
		subject = defaultSubject
	}

	html, err := wrapEmailLayout(data.AppName, doc.HTML)
	if err != nil {
		return nil, err
	}

	return &renderedEmail{
		Subject: subject,
		Text:    stripFrontmatter(src.String()),
		HTML:    html,
	}, nil
}

func stripFrontmatter(src string) string {
	if !strings.HasPrefix(src, "---\n") {
		return strings.TrimSpace(src)
	}
	rest := src[len("---\n"):]
	_, body, found := strings.Cut(rest, "\n---\n")
	if !found {
		return strings.TrimSpace(src)
	}
	return strings.TrimSpace(body)
}

var emailLayout = htmltemplate.Must(htmltemplate.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f6f6f6;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
<div style="max-width:560px;margin:0 auto;padding:24px;background:#ffffff;color:#222222;font-size:16px;line-height:1.5;">
{{.Body}}
<p style="margin-top:32px;color:#888888;font-size:12px;">Sent by {{.AppName}}</p>
</div>
</body>
</html>`))

func wrapEmailLayout(appName, body string) (string, error) {
	var buf bytes.Buffer
	err := emailLayout.Execute(&buf, struct {
		AppName string
		Body    htmltemplate.HTML
	}{AppName: appName, Body: htmltemplate.HTML(body)})
	if err != nil {
		return "", fmt.Errorf("render email layout: %w", err)
	}
	return buf.String(), nil
}
