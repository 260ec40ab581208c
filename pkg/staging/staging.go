// Package staging prepares playlist files for upload. Plex only accepts the .m3u
// extension, so each .m3u8 playlist gets a sibling .m3u copy that is checked
// against the source bytes before it is sent.
package staging

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"plexsync/pkg/constants"
	"plexsync/pkg/logging"
	"plexsync/pkg/utils"
)

// UploadPath returns the path of the .m3u copy staged for playlistPath.
func UploadPath(playlistPath string) string {
	return utils.ReplaceExt(playlistPath, constants.UploadExt)
}

// Stage copies playlistPath to its .m3u sibling and reads the copy back to check
// it. The copy is left in place after the upload.
func Stage(ctx context.Context, playlistPath string) (string, error) {
	dest := UploadPath(playlistPath)
	if dest == playlistPath {
		return "", fmt.Errorf("playlist %s already has the %s extension", playlistPath, constants.UploadExt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(playlistPath)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", playlistPath, err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", playlistPath, err)
	}
	if err := verifyCopy(dest, data); err != nil {
		return "", fmt.Errorf("staged copy of %s is incomplete: %w", playlistPath, err)
	}

	logging.Debug("Staged %s -> %s (%d bytes)", playlistPath, dest, len(data))
	return dest, nil
}

func verifyCopy(destPath string, want []byte) error {
	got, err := os.ReadFile(destPath)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("content mismatch: source=%d bytes, copy=%d bytes", len(want), len(got))
	}
	return nil
}
