// Package muxer assembles decrypted segments into a single media file via ffmpeg.
package muxer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/log"
)

// ffmpegBinary is the external muxer looked up in PATH.
const ffmpegBinary = "ffmpeg"

// Available reports whether the external muxer is executable.
func Available() bool {
	_, err := exec.LookPath(ffmpegBinary)
	return err == nil
}

// Concatenate losslessly joins the segments named by the manifest, in manifest
// order, into outputPath. The command runs inside the manifest's directory so
// relative segment names resolve. No re-encode takes place; streams are copied.
// On failure any partial output file is removed.
func Concatenate(ctx context.Context, manifestPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, ffmpegBinary,
		"-f", "concat",
		"-safe", "0",
		"-i", filepath.Base(manifestPath),
		"-c", "copy",
		"-y", outputPath,
	)
	cmd.Dir = filepath.Dir(manifestPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Errorf("ffmpeg concat failed: %s", output)
		_ = filesystem.API().Remove(outputPath)
		return fmt.Errorf("mux %s: %w", outputPath, err)
	}

	info, err := filesystem.API().Stat(outputPath)
	if err != nil || info.Size() == 0 {
		_ = filesystem.API().Remove(outputPath)
		return fmt.Errorf("mux %s: output missing or empty", outputPath)
	}

	return nil
}
