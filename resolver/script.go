package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// packedMarker identifies the eval-style packer the stream host embeds its
// player configuration in. Pages without it cannot be resolved.
const packedMarker = "eval(function(p,a,c,k,e,"

var (
	scriptTagRe   = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)
	playlistURLRe = regexp.MustCompile(`source=['"]?(https?://[^'"\s]+?\.m3u8[^'"\s]*)['"]?`)
)

// ExtractPackedScript locates the script block containing the packed player code.
func ExtractPackedScript(pageHTML string) (string, error) {
	for _, match := range scriptTagRe.FindAllStringSubmatch(pageHTML, -1) {
		if strings.Contains(match[1], packedMarker) {
			return match[1], nil
		}
	}
	return "", ErrScriptExtraction
}

// transformScript rewrites the packed code for headless evaluation.
// The code is browser-oriented: DOM access is redirected to a benign stub
// object, and the final decode-and-run call is captured instead of executed.
// This is a pure text rewrite applied before the code reaches the engine.
func transformScript(src string) string {
	src = strings.ReplaceAll(src, "document", "__page")

	if idx := strings.Index(src, packedMarker); idx >= 0 {
		src = src[:idx] + "__capture(function(p,a,c,k,e," + src[idx+len(packedMarker):]
	}

	return src
}

// evaluateScript runs the transformed code in an isolated engine with a hard
// timeout and returns whatever the capture hook received. The engine carries
// no DOM, filesystem, or network bindings; its output is untrusted text.
func evaluateScript(src string, timeout time.Duration) (string, error) {
	vm := goja.New()

	var captured string
	if err := vm.Set("__capture", func(s string) { captured = s }); err != nil {
		return "", err
	}

	// Host pages routinely call document.write around the packed block.
	page := vm.NewObject()
	if err := page.Set("write", func(string) {}); err != nil {
		return "", err
	}
	if err := vm.Set("__page", page); err != nil {
		return "", err
	}

	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("script evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunString(src); err != nil {
		return "", fmt.Errorf("%w: %s", ErrScriptExecution, err)
	}

	return captured, nil
}

// playlistURLFrom scans evaluated script output for the playlist assignment
// and validates the address before use.
func playlistURLFrom(output string) (string, error) {
	match := playlistURLRe.FindStringSubmatch(output)
	if match == nil {
		return "", ErrNoPlaylistURL
	}

	parsed, err := url.Parse(match[1])
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: malformed address %q", ErrNoPlaylistURL, match[1])
	}

	return match[1], nil
}
