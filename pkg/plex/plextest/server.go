// Package plextest provides an in-memory Plex server for tests.
package plextest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
)

// Upload records one request to the upload endpoint.
type Upload struct {
	SectionID string
	Path      string
	FileName  string
	Content   string
}

// Server fakes the parts of the Plex API used by plexsync. Uploaded playlists become
// visible under /playlists, titled after the stem of their path parameter, with one
// item per #EXTINF line.
type Server struct {
	*httptest.Server

	Token    string
	Sections map[string]string // title -> key

	mu        sync.Mutex
	uploads   []Upload
	playlists []fakePlaylist
	nextKey   int
	failPaths map[string]int
}

type fakePlaylist struct {
	key    string
	title  string
	titles []string
}

// NewServer starts a fake server that accepts token and knows the given sections.
func NewServer(token string, sections map[string]string) *Server {
	s := &Server{
		Token:     token,
		Sections:  sections,
		nextKey:   100,
		failPaths: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", s.handleSections)
	mux.HandleFunc("/playlists/upload", s.handleUpload)
	mux.HandleFunc("/playlists", s.handlePlaylists)
	mux.HandleFunc("/playlists/", s.handleItems)
	s.Server = httptest.NewServer(s.authorize(mux))
	return s
}

// FailUpload makes uploads whose path ends with suffix answer with status.
func (s *Server) FailUpload(suffix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[suffix] = status
}

// AddPlaylist registers a playlist as if it had been created on the server.
func (s *Server) AddPlaylist(title string, itemTitles ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(title, itemTitles)
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) addLocked(title string, titles []string) string {
	for i, p := range s.playlists {
		if p.title == title {
			s.playlists[i].titles = titles
			return p.key
		}
	}
	s.nextKey++
	key := strconv.Itoa(s.nextKey)
	s.playlists = append(s.playlists, fakePlaylist{key: key, title: title, titles: titles})
	return key
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Plex-Token")
		if token == "" {
			token = r.URL.Query().Get("X-Plex-Token")
		}
		if token != s.Token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	var dirs []map[string]string
	for title, key := range s.Sections {
		dirs = append(dirs, map[string]string{"key": key, "title": title, "type": "artist"})
	}
	writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": len(dirs), "Directory": dirs}})
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta []map[string]any
	for _, p := range s.playlists {
		meta = append(meta, map[string]any{
			"ratingKey":    p.key,
			"title":        p.title,
			"playlistType": "audio",
			"leafCount":    len(p.titles),
		})
	}
	writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": len(meta), "Metadata": meta}})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/playlists/"), "/items")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.playlists {
		if p.key != key {
			continue
		}
		var meta []map[string]any
		for i, t := range p.titles {
			meta = append(meta, map[string]any{"ratingKey": fmt.Sprintf("%s%d", key, i), "title": t})
		}
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": len(meta), "Metadata": meta}})
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	s.mu.Lock()
	defer s.mu.Unlock()

	upload := Upload{
		SectionID: query.Get("sectionID"),
		Path:      query.Get("path"),
		FileName:  header.Filename,
		Content:   string(content),
	}
	s.uploads = append(s.uploads, upload)

	for suffix, status := range s.failPaths {
		if strings.HasSuffix(upload.Path, suffix) {
			http.Error(w, "upload rejected", status)
			return
		}
	}

	name := path.Base(upload.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	title := strings.TrimSuffix(name, path.Ext(name))
	s.addLocked(title, extinfTitles(upload.Content))
	w.WriteHeader(http.StatusOK)
}

func extinfTitles(content string) []string {
	var titles []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}
		if i := strings.Index(line, ","); i >= 0 {
			titles = append(titles, line[i+1:])
		}
	}
	return titles
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
