package sentichat

import "embed"

// TemplateFS contains the embedded HTML templates, split into layout, pages and the partials
// that are also rendered on their own for SSE updates.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the page script, stylesheet and icon.
//
//go:embed static/*
var StaticFS embed.FS
