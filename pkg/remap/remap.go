// Package remap rewrites local media paths into paths the Plex server can resolve.
package remap

import (
	"strings"

	"plexsync/pkg/utils"
)

// Rule replaces LocalRoot with PlexRoot as a literal prefix. It is immutable once built.
type Rule struct {
	LocalRoot    string
	PlexRoot     string
	EncodeSpaces bool
}

// NewRule normalizes both roots to forward slashes.
func NewRule(localRoot, plexRoot string, encodeSpaces bool) Rule {
	return Rule{
		LocalRoot:    utils.SlashPath(localRoot),
		PlexRoot:     strings.ReplaceAll(plexRoot, "\\", "/"),
		EncodeSpaces: encodeSpaces,
	}
}

// Remap returns the server path for p and whether LocalRoot matched. A path outside
// LocalRoot is passed through with only separator normalization and space encoding.
//
// Matching and replacement run on the unencoded path; spaces become %20 afterwards.
func (r Rule) Remap(p string) (string, bool) {
	out := utils.SlashPath(p)

	matched := r.LocalRoot != "" && strings.HasPrefix(out, r.LocalRoot)
	if matched {
		rest := out[len(r.LocalRoot):]
		root := r.PlexRoot
		if strings.HasSuffix(root, "/") && strings.HasPrefix(rest, "/") {
			root = strings.TrimSuffix(root, "/")
		}
		out = root + rest
	}

	if r.EncodeSpaces {
		out = strings.ReplaceAll(out, " ", "%20")
	}
	return out, matched
}
