// Package web embeds the pre-built admin console.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// Assets returns the UI rooted at dist/.
func Assets() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
