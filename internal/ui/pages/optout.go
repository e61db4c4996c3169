package pages

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

type OptOutProps struct {
	AppName      string
	SupportEmail string
	Heading      string
	Body         string
	Success      bool
}

var optOutPage = template.Must(template.New("optout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Heading}} · {{.AppName}}</title>
<style>
body{font-family:system-ui,-apple-system,sans-serif;background:#f6f7f9;color:#111;margin:0;display:flex;min-height:100vh;align-items:center;justify-content:center}
main{background:#fff;border-radius:12px;padding:40px;max-width:420px;box-shadow:0 1px 3px rgba(0,0,0,.08);text-align:center}
h1{font-size:22px;margin:0 0 12px}
p{line-height:1.5;color:#444}
.ok h1{color:#15803d}
.err h1{color:#b91c1c}
small{color:#888}
</style>
</head>
<body>
<main class="{{if .Success}}ok{{else}}err{{end}}">
<h1>{{.Heading}}</h1>
<p>{{.Body}}</p>
{{if .SupportEmail}}<small>Questions? <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a></small>{{end}}
</main>
</body>
</html>
`))

// OptOut is the page shown after a contact follows their opt-out link.
func OptOut(props OptOutProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return optOutPage.Execute(w, props)
	})
}
