// Package web embeds the page templates and static assets.
package web

import "embed"

// TemplatesFS holds the server-rendered page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
