// Package web holds the static battle page.
package web

import "embed"

// Assets contains the page files under dist/.
//
//go:embed dist
var Assets embed.FS
