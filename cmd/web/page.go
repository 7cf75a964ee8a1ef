package main

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tomz197/greeting/internal/config"
)

// qrSize is the edge of the QR code image in pixels.
const qrSize = 256

//go:embed index.html
var htmlPage string

var pageTemplate = template.Must(template.New("index").Parse(htmlPage))

// pageData fills index.html.
type pageData struct {
	Command string // What the visitor types
	Title   string
}

// sshCommand returns the command that opens the card.
func sshCommand(cfg config.Config) string {
	if cfg.SSH.Port == "22" {
		return "ssh " + cfg.Web.DisplayHost
	}
	return fmt.Sprintf("ssh -p %s %s", cfg.SSH.Port, cfg.Web.DisplayHost)
}

// sshURL is the ssh:// address encoded in the QR code.
func sshURL(cfg config.Config) string {
	return fmt.Sprintf("ssh://%s:%s", cfg.Web.DisplayHost, cfg.SSH.Port)
}

// newHandler serves the landing page and its QR code. The QR image is encoded
// once at startup.
func newHandler(cfg config.Config, logger *log.Logger) (http.Handler, error) {
	png, err := qrcode.Encode(sshURL(cfg), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	data := pageData{
		Command: sshCommand(cfg),
		Title:   cfg.Intro.Title,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, data); err != nil {
			logger.Warn("render page", "err", err)
		}
	})
	mux.HandleFunc("GET /qr.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(png)
	})
	return mux, nil
}
