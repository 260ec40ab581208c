// Package report writes a JSON summary of plexsync runs.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"plexsync/pkg/pipeline"
	"plexsync/pkg/utils"
	"plexsync/pkg/verify"
)

// Writer keeps one entry per playlist. Later runs replace the entries of the
// playlists they touched, so a watch session ends with the latest state of each.
type Writer struct {
	Path    string
	Updated time.Time
	Runs    int
	Items   []Item
	Index   map[string]*Item
}

type Item struct {
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	Mode        string            `json:"mode"`
	State       string            `json:"state"`
	FailedStage string            `json:"failed_stage,omitempty"`
	Error       string            `json:"error,omitempty"`
	Tracks      int               `json:"tracks"`
	Added       int               `json:"added"`
	Unmapped    int               `json:"unmapped,omitempty"`
	PlaylistID  string            `json:"playlist_id,omitempty"`
	Mismatches  []verify.Mismatch `json:"mismatches,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type document struct {
	Updated    time.Time `json:"updated"`
	Runs       int       `json:"runs"`
	SectionID  string    `json:"section_id,omitempty"`
	MasterFile string    `json:"master_file,omitempty"`
	Playlists  []Item    `json:"playlists"`
}

func NewWriter(path string) *Writer {
	return &Writer{
		Path:  path,
		Items: make([]Item, 0),
		Index: make(map[string]*Item),
	}
}

// Add records every result of s.
func (w *Writer) Add(s *pipeline.Summary) {
	w.Runs++
	w.Updated = s.Started.Add(s.Duration)
	for _, r := range s.Results {
		w.AddOrUpdate(itemFrom(r, w.Updated))
	}
}

func (w *Writer) AddOrUpdate(item Item) {
	if w.Index == nil {
		w.Index = make(map[string]*Item)
	}

	if existing, ok := w.Index[item.Name]; ok {
		*existing = item
		return
	}
	w.Items = append(w.Items, item)
	w.rebuildIndex()
}

// rebuildIndex refreshes the pointers after Items may have been reallocated.
func (w *Writer) rebuildIndex() {
	for i := range w.Items {
		w.Index[w.Items[i].Name] = &w.Items[i]
	}
}

// Write overwrites Path with the report. sectionID and masterFile are informational.
func (w *Writer) Write(sectionID, masterFile string) error {
	sort.Slice(w.Items, func(i, j int) bool {
		return w.Items[i].Name < w.Items[j].Name
	})
	w.rebuildIndex()

	doc := document{
		Updated:    w.Updated,
		Runs:       w.Runs,
		SectionID:  sectionID,
		MasterFile: masterFile,
		Playlists:  w.Items,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := utils.ValidateWritablePath(w.Path); err != nil {
		return fmt.Errorf("report path validation failed: %w", err)
	}
	if err := os.WriteFile(w.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func itemFrom(r *pipeline.Result, at time.Time) Item {
	item := Item{
		Name:       r.Name,
		Path:       r.Path,
		Mode:       r.Mode.String(),
		State:      r.State.String(),
		Tracks:     r.Tracks,
		Added:      r.Added,
		Unmapped:   r.Unmapped,
		PlaylistID: r.PlaylistID,
		Mismatches: r.Mismatches,
		UpdatedAt:  at,
	}
	if r.State == pipeline.StateFailed {
		item.FailedStage = r.FailedStage.String()
	}
	if r.Err != nil {
		item.Error = r.Err.Error()
	}
	return item
}
