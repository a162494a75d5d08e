// Package data ships the default question banks, one JSON file per theme.
package data

import "embed"

//go:embed *.json
var Themes embed.FS
