package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// テンプレート名 -> 件名
var subjects = map[string]string{
	"password_reset": "Reset your password",
}

// 送信するメール1通
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(from string, to string, name string, data map[string]any) (Email, error) {
	subject, ok := subjects[name]
	if !ok {
		return Email{}, fmt.Errorf("unknown mail template %q", name)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return Email{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Email{From: from, To: to, Subject: subject, HTML: buf.String()}, nil
}
