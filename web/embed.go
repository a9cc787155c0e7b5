// Package web embeds the page templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and htmx partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small htmx event script.
//
//go:embed static/*
var StaticFS embed.FS
