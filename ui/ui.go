// Package ui embeds the static browser client.
package ui

import "embed"

//go:embed static
var FS embed.FS
