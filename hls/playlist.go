package hls

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Playlist is the parsed form of a fetched HLS media playlist.
type Playlist struct {
	// SegmentURLs in playback order. This order is authoritative and must be
	// preserved through every subsequent stage.
	SegmentURLs []string

	// KeyURL references the AES-128 decryption key, empty for plaintext streams.
	KeyURL string
}

// Encrypted reports whether the playlist references a decryption key.
func (p Playlist) Encrypted() bool {
	return p.KeyURL != ""
}

var keyLineRe = regexp.MustCompile(`#EXT-X-KEY:METHOD=AES-128,URI="([^"]+)"`)

// ParsePlaylist extracts segment URLs and the optional key reference from
// playlist text. Segment lines are recognized by their URL scheme prefix,
// in file order.
func ParsePlaylist(text string) Playlist {
	var playlist Playlist

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "http://"), strings.HasPrefix(line, "https://"):
			playlist.SegmentURLs = append(playlist.SegmentURLs, line)
		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			if match := keyLineRe.FindStringSubmatch(line); match != nil {
				playlist.KeyURL = match[1]
			}
		}
	}

	return playlist
}

// segmentName derives the deterministic local basename for a segment URL.
// The playlist index prefixes the name so URLs sharing a basename under
// different path prefixes never collide on disk. Manifest order is restored
// by looking files up through this name, never by filesystem listing order.
func segmentName(index int, segmentURL string) string {
	base := path.Base(segmentURL)
	if parsed, err := url.Parse(segmentURL); err == nil {
		base = path.Base(parsed.Path)
	}
	return fmt.Sprintf("%04d-%s", index, base)
}
