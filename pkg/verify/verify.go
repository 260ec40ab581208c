// Package verify compares local playlists with what the Plex server holds.
// Differences are reported as Mismatch values and never stop a run.
package verify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"plexsync/pkg/logging"
	"plexsync/pkg/plex"
)

type Kind string

const (
	KindMissingUpload   Kind = "missing-upload"
	KindContentMismatch Kind = "content-mismatch"
)

// Mismatch is one discrepancy found for a playlist. MissingRemote lists local titles
// the server does not have; ExtraRemote lists server titles absent locally.
type Mismatch struct {
	Playlist      string   `json:"playlist"`
	Kind          Kind     `json:"kind"`
	MissingRemote []string `json:"missing_remote,omitempty"`
	ExtraRemote   []string `json:"extra_remote,omitempty"`
}

func (m Mismatch) String() string {
	switch m.Kind {
	case KindMissingUpload:
		return fmt.Sprintf("playlist '%s' not found on Plex", m.Playlist)
	default:
		return fmt.Sprintf("playlist '%s' differs: %d missing on Plex, %d extra on Plex",
			m.Playlist, len(m.MissingRemote), len(m.ExtraRemote))
	}
}

// Source is the part of the Plex client the verifier needs.
type Source interface {
	Playlists(ctx context.Context) ([]plex.Playlist, error)
	PlaylistItems(ctx context.Context, ratingKey string) ([]plex.Item, error)
}

// Verifier caches the server's playlist listing so a run fetches it once.
type Verifier struct {
	source Source
	remote map[string]plex.Playlist
}

func New(source Source) *Verifier {
	return &Verifier{source: source}
}

// Load fetches the server's playlists. Later checks reuse the result.
func (v *Verifier) Load(ctx context.Context) error {
	playlists, err := v.source.Playlists(ctx)
	if err != nil {
		return err
	}
	v.remote = make(map[string]plex.Playlist, len(playlists))
	for _, p := range playlists {
		if _, dup := v.remote[p.Title]; dup {
			logging.Warn("Plex has more than one playlist titled '%s'; using the first", p.Title)
			continue
		}
		v.remote[p.Title] = p
	}
	logging.Debug("Loaded %d playlists from Plex", len(v.remote))
	return nil
}

// Loaded reports whether Load has succeeded.
func (v *Verifier) Loaded() bool {
	return v.remote != nil
}

// CheckExistence returns a missing-upload mismatch when no server playlist is
// titled exactly name.
func (v *Verifier) CheckExistence(name string) *Mismatch {
	if _, ok := v.remote[name]; ok {
		return nil
	}
	return &Mismatch{Playlist: name, Kind: KindMissingUpload}
}

// CheckContent compares localTitles with the items of the server playlist titled
// name.
func (v *Verifier) CheckContent(ctx context.Context, name string, localTitles []string) (*Mismatch, error) {
	remote, ok := v.remote[name]
	if !ok {
		return &Mismatch{Playlist: name, Kind: KindMissingUpload}, nil
	}

	items, err := v.source.PlaylistItems(ctx, remote.RatingKey)
	if err != nil {
		return nil, err
	}
	remoteTitles := make([]string, 0, len(items))
	for _, item := range items {
		remoteTitles = append(remoteTitles, item.Title)
	}
	return CompareTitles(name, localTitles, remoteTitles), nil
}

// CompareTitles compares two title sets. Order and duplicates are ignored.
func CompareTitles(name string, local, remote []string) *Mismatch {
	missing := difference(local, remote)
	extra := difference(remote, local)
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return &Mismatch{
		Playlist:      name,
		Kind:          KindContentMismatch,
		MissingRemote: missing,
		ExtraRemote:   extra,
	}
}

// difference returns the sorted members of a that are not in b.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range a {
		if inB[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LogMismatch writes m at warning level, one line per differing title.
func LogMismatch(m Mismatch) {
	logging.Warn("%s", m)
	if len(m.MissingRemote) > 0 {
		logging.Warn("  Missing in Plex: %s", strings.Join(m.MissingRemote, "; "))
	}
	if len(m.ExtraRemote) > 0 {
		logging.Warn("  Extra in Plex: %s", strings.Join(m.ExtraRemote, "; "))
	}
}
