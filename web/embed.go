// Package web embeds the dashboard's templates and static files.
package web

import "embed"

// TemplatesFS holds index.html and the "dashboard" partial.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds style.css and live.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
