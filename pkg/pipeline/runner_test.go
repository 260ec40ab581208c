package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"plexsync/pkg/config"
	"plexsync/pkg/constants"
	"plexsync/pkg/httpClient"
	"plexsync/pkg/logging"
	"plexsync/pkg/metrics"
	"plexsync/pkg/playlist"
	"plexsync/pkg/plex"
	"plexsync/pkg/plex/plextest"
	"plexsync/pkg/verify"
)

const (
	testToken   = "token"
	testSection = "3"
)

func TestMain(m *testing.M) {
	logging.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

type fixture struct {
	root   string
	folder string
	cfg    *config.Config
	server *plextest.Server
	client *plex.Client
}

// newFixture lays out <root>/playlists/<dir>/<file> for every entry of files and
// returns a config remapping <root> to /data.
func newFixture(t *testing.T, files map[string][]string) *fixture {
	t.Helper()
	root := t.TempDir()
	folder := filepath.Join(root, "playlists")

	for dir, names := range files {
		if err := os.MkdirAll(filepath.Join(folder, dir), 0755); err != nil {
			t.Fatal(err)
		}
		for _, name := range names {
			writeMedia(t, filepath.Join(folder, dir, name))
		}
	}
	os.MkdirAll(folder, 0755)

	server := plextest.NewServer(testToken, map[string]string{"Music": testSection})
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Paths.PlaylistFolder = folder
	cfg.Paths.LocalRoot = root
	cfg.Paths.PlexRoot = "/data"
	cfg.Paths.MasterFile = filepath.Join(root, "master.m3u8")
	cfg.Plex.BaseURL = server.URL
	cfg.Plex.Token = testToken
	cfg.Plex.LibraryName = "Music"
	cfg.Plex.UploadURL = server.URL + constants.DefaultUploadPath
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Generate.FFprobePath = ""

	return &fixture{
		root:   root,
		folder: folder,
		cfg:    &cfg,
		server: server,
		client: plex.NewClient(cfg.Plex, cfg.HTTP),
	}
}

func writeMedia(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) run(t *testing.T) *Summary {
	t.Helper()
	summary, err := NewRunner(f.cfg, f.client).Run(context.Background(), testSection)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return summary
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func resultFor(t *testing.T, s *Summary, name string) *Result {
	t.Helper()
	for _, r := range s.Results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result for %q", name)
	return nil
}

func TestRun_RockAndEmpty(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"Rock":  {"02 Hello.mp3", "01 Intro.mp3", "cover.jpg"},
		"Empty": nil,
	})

	summary := f.run(t)

	rock := readString(t, filepath.Join(f.folder, "Rock", "Rock.m3u8"))
	wantRock := "#EXTM3U\n" +
		"#EXTINF:0,01 Intro\n/data/playlists/Rock/01 Intro.mp3\n" +
		"#EXTINF:0,02 Hello\n/data/playlists/Rock/02 Hello.mp3\n"
	if rock != wantRock {
		t.Errorf("Rock.m3u8 =\n%s\nwant\n%s", rock, wantRock)
	}
	if empty := readString(t, filepath.Join(f.folder, "Empty", "Empty.m3u8")); empty != "#EXTM3U\n" {
		t.Errorf("Empty.m3u8 = %q, want header only", empty)
	}

	master := readString(t, f.cfg.Paths.MasterFile)
	wantMaster := "#EXTM3U\n/data/playlists/Empty/Empty.m3u8\n/data/playlists/Rock/Rock.m3u8\n"
	if master != wantMaster {
		t.Errorf("master =\n%s\nwant\n%s", master, wantMaster)
	}

	uploads := f.server.Uploads()
	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploads))
	}
	for _, u := range uploads {
		if u.SectionID != testSection {
			t.Errorf("upload %s used section %q", u.Path, u.SectionID)
		}
		if !strings.HasSuffix(u.FileName, ".m3u") {
			t.Errorf("uploaded file %q should have the .m3u extension", u.FileName)
		}
	}
	if uploads[1].Path != "/data/playlists/Rock/Rock.m3u" {
		t.Errorf("upload path = %q", uploads[1].Path)
	}
	if uploads[1].Content != wantRock {
		t.Errorf("uploaded content differs from the playlist")
	}
	if _, err := os.Stat(filepath.Join(f.folder, "Rock", "Rock.m3u")); err != nil {
		t.Error("staged .m3u copy should remain next to the playlist")
	}

	if summary.Mode != playlist.ModeRegenerate {
		t.Errorf("Mode = %v", summary.Mode)
	}
	if summary.Stats.Uploaded != 2 || summary.Stats.Generated != 2 {
		t.Errorf("stats = %+v", summary.Stats)
	}
	if r := resultFor(t, summary, "Rock"); r.State != StateUploaded || r.Tracks != 2 {
		t.Errorf("Rock result = %+v", r)
	}
	if err := summary.Err(true); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestRun_Incremental(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"01.mp3", "02.mp3", "03.mp3"}})
	f.cfg.Generate.Incremental = true
	f.cfg.Generate.GenerateOnly = true

	path := filepath.Join(f.folder, "Rock", "Rock.m3u8")
	existing := "#EXTM3U\n" +
		"#EXTINF:180,First Song\n/data/playlists/Rock/01.mp3\n" +
		"#EXTINF:200,Second Song\n/data/playlists/Rock/02.mp3\n"
	os.WriteFile(path, []byte(existing), 0644)

	summary := f.run(t)

	got := readString(t, path)
	if !strings.HasPrefix(got, existing) {
		t.Error("existing entries must be preserved unchanged")
	}
	if added := strings.TrimPrefix(got, existing); added != "#EXTINF:0,03\n/data/playlists/Rock/03.mp3\n" {
		t.Errorf("appended = %q", added)
	}

	r := resultFor(t, summary, "Rock")
	if r.State != StateSkippedUpload || r.Mode != playlist.ModeIncremental || r.Added != 1 {
		t.Errorf("result = %+v", r)
	}
	if len(f.server.Uploads()) != 0 {
		t.Error("generate-only must not upload")
	}

	// A second pass finds nothing new.
	summary = f.run(t)
	if readString(t, path) != got {
		t.Error("second incremental pass should not change the file")
	}
	if r := resultFor(t, summary, "Rock"); r.Added != 0 {
		t.Errorf("second pass added %d", r.Added)
	}
}

func TestRun_EncodeSpaces(t *testing.T) {
	f := newFixture(t, map[string][]string{"Hip Hop": {"My Song.mp3"}})
	f.cfg.Generate.EncodeSpaces = true

	f.run(t)

	got := readString(t, filepath.Join(f.folder, "Hip Hop", "Hip Hop.m3u8"))
	if !strings.Contains(got, "/data/playlists/Hip%20Hop/My%20Song.mp3\n") {
		t.Errorf("playlist = %q", got)
	}
	if !strings.Contains(got, "#EXTINF:0,My Song\n") {
		t.Error("titles must keep their spaces")
	}

	if p := f.server.Uploads()[0].Path; p != "/data/playlists/Hip%20Hop/Hip%20Hop.m3u" {
		t.Errorf("upload path = %q", p)
	}
	if master := readString(t, f.cfg.Paths.MasterFile); !strings.Contains(master, "/data/playlists/Hip%20Hop/Hip%20Hop.m3u8") {
		t.Errorf("master = %q", master)
	}
}

func TestRun_SkipEmpty(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}, "Empty": nil})
	f.cfg.Generate.SkipEmpty = true

	summary := f.run(t)

	if _, err := os.Stat(filepath.Join(f.folder, "Empty", "Empty.m3u8")); !os.IsNotExist(err) {
		t.Error("empty folder should not get a playlist")
	}
	if r := resultFor(t, summary, "Empty"); r.State != StateSkippedEmpty {
		t.Errorf("Empty state = %v", r.State)
	}
	if master := readString(t, f.cfg.Paths.MasterFile); strings.Contains(master, "Empty") {
		t.Errorf("master should not list skipped playlists: %q", master)
	}
	if summary.Stats.SkippedEmpty != 1 || len(f.server.Uploads()) != 1 {
		t.Errorf("stats = %+v", summary.Stats)
	}
}

func TestRun_UploadFailure(t *testing.T) {
	f := newFixture(t, map[string][]string{"Jazz": {"a.mp3"}, "Rock": {"b.mp3"}})
	f.server.FailUpload("Jazz.m3u", http.StatusInternalServerError)
	rejected := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("http_error"))

	summary := f.run(t)

	if got := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("http_error")) - rejected; got != 1 {
		t.Errorf("uploads{status=http_error} grew by %v, want 1", got)
	}

	jazz := resultFor(t, summary, "Jazz")
	if !jazz.Failed(StageUpload) {
		t.Errorf("Jazz = %+v, want failed at upload", jazz)
	}
	var stageErr *StageError
	if !errors.As(jazz.Err, &stageErr) || stageErr.Stage != StageUpload {
		t.Errorf("Err = %v", jazz.Err)
	}
	if r := resultFor(t, summary, "Rock"); r.State != StateUploaded {
		t.Errorf("Rock should still be uploaded, got %v", r.State)
	}

	if !strings.Contains(readString(t, f.cfg.Paths.MasterFile), "Jazz.m3u8") {
		t.Error("a generated playlist stays in the master even if its upload failed")
	}
	if summary.Stats.Uploaded != 1 || summary.Stats.UploadAttempted != 2 {
		t.Errorf("stats = %+v", summary.Stats)
	}
	if err := summary.Err(false); err != nil {
		t.Errorf("Err(false) = %v, upload failures are not fatal by default", err)
	}
	if err := summary.Err(true); !errors.Is(err, ErrUploadFailed) {
		t.Errorf("Err(true) = %v, want ErrUploadFailed", err)
	}
}

func TestUploadStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rejected", &httpClient.HTTPError{StatusCode: 500, Message: "boom"}, "http_error"},
		{"wrapped", fmt.Errorf("upload: %w", &httpClient.HTTPError{StatusCode: 401}), "http_error"},
		{"timeout", context.DeadlineExceeded, "transport_error"},
		{"refused", errors.New("connection refused"), "transport_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uploadStatus(tt.err); got != tt.want {
				t.Errorf("uploadStatus(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_UseExisting(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}, "Jazz": {"b.mp3"}})
	f.cfg.Generate.UseExisting = true

	content := "#EXTM3U\n#EXTINF:10,Hand Made\n/somewhere/else.mp3\n"
	os.WriteFile(filepath.Join(f.folder, "Rock", "Rock.m3u8"), []byte(content), 0644)

	summary := f.run(t)

	if got := readString(t, filepath.Join(f.folder, "Rock", "Rock.m3u8")); got != content {
		t.Errorf("use-existing must not rewrite the playlist, got %q", got)
	}
	if r := resultFor(t, summary, "Rock"); r.State != StateUploaded {
		t.Errorf("Rock state = %v", r.State)
	}

	jazz := resultFor(t, summary, "Jazz")
	if !jazz.Failed(StageGenerate) {
		t.Errorf("Jazz = %+v, want failed at generate", jazz)
	}
	var ioErr *playlist.IOError
	if !errors.As(jazz.Err, &ioErr) {
		t.Errorf("Jazz error = %v, want IOError", jazz.Err)
	}
	if master := readString(t, f.cfg.Paths.MasterFile); strings.Contains(master, "Jazz") {
		t.Errorf("failed playlists must not be in the master: %q", master)
	}
	if err := summary.Err(false); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Err() = %v, want ErrGenerationFailed", err)
	}
}

func TestRun_SkipWhenAllExist(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	f.cfg.Generate.GenerateOnly = true
	path := filepath.Join(f.folder, "Rock", "Rock.m3u8")
	os.WriteFile(path, []byte("#EXTM3U\n"), 0644)

	summary := f.run(t)
	if summary.Mode != playlist.ModeUseExisting {
		t.Errorf("Mode = %v, want use-existing when every playlist exists", summary.Mode)
	}
	if readString(t, path) != "#EXTM3U\n" {
		t.Error("existing playlist should be left alone")
	}

	f.cfg.Generate.Force = true
	summary = f.run(t)
	if summary.Mode != playlist.ModeRegenerate {
		t.Errorf("Mode = %v, want regenerate with --force", summary.Mode)
	}
	if !strings.Contains(readString(t, path), "a.mp3") {
		t.Error("--force should regenerate the playlist")
	}
}

func TestRun_UnmappedPaths(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	f.cfg.Paths.LocalRoot = "/not/the/root"
	f.cfg.Generate.GenerateOnly = true

	summary := f.run(t)

	got := readString(t, filepath.Join(f.folder, "Rock", "Rock.m3u8"))
	if !strings.Contains(got, filepath.ToSlash(filepath.Join(f.folder, "Rock", "a.mp3"))) {
		t.Errorf("unmapped path should pass through unchanged: %q", got)
	}
	if summary.Stats.Unmapped != 1 {
		t.Errorf("Unmapped = %d, want 1", summary.Stats.Unmapped)
	}
	if err := summary.Err(true); err != nil {
		t.Errorf("unmapped paths are warnings, got %v", err)
	}
}

func TestRun_Verify(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"01 Intro.mp3", "02 Hello.mp3"}, "Jazz": {"a.mp3"}})
	f.cfg.Generate.GenerateOnly = true
	f.cfg.Verify.Uploads = true
	f.cfg.Verify.Content = true
	f.server.AddPlaylist("Rock", "01 Intro", "Bonus Track")

	summary := f.run(t)

	rock := resultFor(t, summary, "Rock")
	if rock.State != StateVerified || len(rock.Mismatches) != 1 {
		t.Fatalf("Rock = %+v", rock)
	}
	m := rock.Mismatches[0]
	if m.Kind != verify.KindContentMismatch || len(m.MissingRemote) != 1 || m.MissingRemote[0] != "02 Hello" {
		t.Errorf("mismatch = %+v", m)
	}
	if len(m.ExtraRemote) != 1 || m.ExtraRemote[0] != "Bonus Track" {
		t.Errorf("ExtraRemote = %v", m.ExtraRemote)
	}

	jazz := resultFor(t, summary, "Jazz")
	if len(jazz.Mismatches) != 1 || jazz.Mismatches[0].Kind != verify.KindMissingUpload {
		t.Errorf("Jazz mismatches = %+v", jazz.Mismatches)
	}

	if summary.Stats.Mismatches != 2 {
		t.Errorf("Mismatches = %d", summary.Stats.Mismatches)
	}
	if err := summary.Err(false); err != nil {
		t.Errorf("mismatches are not fatal by default: %v", err)
	}
	if err := summary.Err(true); !errors.Is(err, ErrVerifyFailed) {
		t.Errorf("Err(true) = %v, want ErrVerifyFailed", err)
	}
}

func TestRun_VerifyAfterUpload(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"01 Intro.mp3", "02 Hello.mp3"}})
	f.cfg.Verify.Uploads = true
	f.cfg.Verify.Content = true

	summary := f.run(t)

	rock := resultFor(t, summary, "Rock")
	if rock.State != StateVerified || len(rock.Mismatches) != 0 {
		t.Errorf("Rock = %+v", rock)
	}
	if summary.Stats.Verified != 1 {
		t.Errorf("stats = %+v", summary.Stats)
	}
}

func TestRun_VerifyListingFails(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	f.cfg.Generate.GenerateOnly = true
	f.cfg.Verify.Uploads = true
	f.cfg.Plex.Token = "wrong"

	summary, err := NewRunner(f.cfg, plex.NewClient(f.cfg.Plex, f.cfg.HTTP)).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if r := resultFor(t, summary, "Rock"); !r.Failed(StageVerify) {
		t.Errorf("Rock = %+v, want failed at verify", r)
	}
	if summary.Err(false) != nil {
		t.Error("verification failures are not fatal by default")
	}
}

func TestRun_NoServer(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	f.cfg.Generate.GenerateOnly = true

	summary, err := NewRunner(f.cfg, nil).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if r := resultFor(t, summary, "Rock"); r.State != StateSkippedUpload {
		t.Errorf("state = %v", r.State)
	}
}

func TestRun_MasterUnwritable(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	f.cfg.Generate.GenerateOnly = true
	// A regular file where the master's directory should be.
	blocker := filepath.Join(f.root, "blocker")
	os.WriteFile(blocker, nil, 0644)
	f.cfg.Paths.MasterFile = filepath.Join(blocker, "master.m3u8")

	summary := f.run(t)
	if summary.MasterErr == nil {
		t.Fatal("expected a master playlist error")
	}
	if err := summary.Err(false); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Err() = %v", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(f.cfg, f.client).Run(ctx, testSection)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(f.server.Uploads()) != 0 {
		t.Error("nothing should be uploaded after cancellation")
	}
}

func TestRun_HiddenAndMissingFolder(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}, ".trash": {"x.mp3"}})
	f.cfg.Generate.GenerateOnly = true

	summary := f.run(t)
	if len(summary.Results) != 1 {
		t.Errorf("hidden folders should be ignored, got %d results", len(summary.Results))
	}

	f.cfg.Paths.PlaylistFolder = filepath.Join(f.root, "missing")
	if _, err := NewRunner(f.cfg, nil).Run(context.Background(), ""); err == nil {
		t.Error("Run() should fail for a missing playlist folder")
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}, "Jazz": {"b.mp3"}})
	f.cfg.Generate.Incremental = true
	runner := NewRunner(f.cfg, f.client)

	if _, err := runner.Run(context.Background(), testSection); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	writeMedia(t, filepath.Join(f.folder, "Rock", "c.mp3"))
	summary, err := runner.Refresh(context.Background(), "Rock", testSection)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Added != 1 {
		t.Fatalf("Refresh results = %+v", summary.Results)
	}
	if !strings.Contains(readString(t, filepath.Join(f.folder, "Rock", "Rock.m3u8")), "/data/playlists/Rock/c.mp3") {
		t.Error("new file should be appended")
	}
	if n := len(f.server.Uploads()); n != 3 {
		t.Errorf("expected a third upload, got %d", n)
	}

	master := readString(t, f.cfg.Paths.MasterFile)
	if !strings.Contains(master, "Jazz.m3u8") || !strings.Contains(master, "Rock.m3u8") {
		t.Errorf("master should keep every playlist: %q", master)
	}

	os.RemoveAll(filepath.Join(f.folder, "Jazz"))
	if _, err := runner.Refresh(context.Background(), "Jazz", testSection); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if master := readString(t, f.cfg.Paths.MasterFile); strings.Contains(master, "Jazz") {
		t.Errorf("removed playlist should leave the master: %q", master)
	}
}

func TestStateAndStageStrings(t *testing.T) {
	if StateIncrementallyUpdated.String() != "incrementally-updated" || StateFailed.String() != "failed" {
		t.Error("unexpected state names")
	}
	if StageUpload.String() != "upload" || StageNone.String() != "none" {
		t.Error("unexpected stage names")
	}
	err := &StageError{Playlist: "Rock", Stage: StageScan, Err: os.ErrPermission}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("StageError should unwrap")
	}
	if err.Error() != "playlist Rock: scan failed: permission denied" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestVerifyOnly(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": {"a.mp3"}, "Jazz": nil})
	f.cfg.Verify.Uploads = true
	f.cfg.Verify.Content = true
	os.WriteFile(filepath.Join(f.folder, "Rock", "Rock.m3u8"), []byte("#EXTM3U\n#EXTINF:1,Song A\n/data/a.mp3\n"), 0644)
	f.server.AddPlaylist("Rock", "Song A")
	f.server.AddPlaylist("Jazz")

	summary, err := NewRunner(f.cfg, f.client).VerifyOnly(context.Background())
	if err != nil {
		t.Fatalf("VerifyOnly() failed: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}
	for _, r := range summary.Results {
		if r.State != StateVerified || len(r.Mismatches) != 0 {
			t.Errorf("%s = %+v", r.Name, r)
		}
	}
	if len(f.server.Uploads()) != 0 {
		t.Error("verification must not upload")
	}
	if _, err := os.Stat(f.cfg.Paths.MasterFile); !os.IsNotExist(err) {
		t.Error("verification must not write the master playlist")
	}
}

func TestVerifyOnly_ListingFails(t *testing.T) {
	f := newFixture(t, map[string][]string{"Rock": nil})
	f.cfg.Plex.Token = "wrong"

	_, err := NewRunner(f.cfg, plex.NewClient(f.cfg.Plex, f.cfg.HTTP)).VerifyOnly(context.Background())
	if err == nil {
		t.Error("VerifyOnly() should fail when the server listing fails")
	}
}

func TestVerifyOnly_ContentWithoutLocalFile(t *testing.T) {
	f := newFixture(t, map[string][]string{"Jazz": nil})
	f.cfg.Verify.Content = true
	f.server.AddPlaylist("Jazz")

	summary, err := NewRunner(f.cfg, f.client).VerifyOnly(context.Background())
	if err != nil {
		t.Fatalf("VerifyOnly() failed: %v", err)
	}
	if r := resultFor(t, summary, "Jazz"); r.State != StateSkippedVerify || r.Err != nil {
		t.Errorf("Jazz = %+v, want skipped-verify", r)
	}
	if summary.Err(true) != nil {
		t.Errorf("a skipped check is not a failure: %v", summary.Err(true))
	}
}
