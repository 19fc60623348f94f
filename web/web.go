// Package web embeds the built single-page frontend served by the HTTP
// server alongside the JSON API.
package web

import "embed"

//go:embed dist
var DistFS embed.FS
