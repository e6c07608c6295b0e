package hls

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/network"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestParsePlaylist(t *testing.T) {
	Convey("Given an encrypted media playlist", t, func() {
		text := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-KEY:METHOD=AES-128,URI="https://cdn.example.com/stream.key"
#EXTINF:4.0,
https://cdn.example.com/seg-001.ts
#EXTINF:4.0,
https://cdn.example.com/seg-002.ts
#EXTINF:4.0,
https://cdn.example.com/seg-003.ts
#EXT-X-ENDLIST`

		Convey("When parsed", func() {
			playlist := ParsePlaylist(text)

			Convey("Then segment URLs keep file order", func() {
				So(playlist.SegmentURLs, ShouldResemble, []string{
					"https://cdn.example.com/seg-001.ts",
					"https://cdn.example.com/seg-002.ts",
					"https://cdn.example.com/seg-003.ts",
				})
			})

			Convey("And the key reference is extracted", func() {
				So(playlist.KeyURL, ShouldEqual, "https://cdn.example.com/stream.key")
				So(playlist.Encrypted(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a plaintext playlist", t, func() {
		playlist := ParsePlaylist("#EXTM3U\nhttp://cdn.example.com/only.ts\n#EXT-X-ENDLIST")

		Convey("It has no key", func() {
			So(playlist.Encrypted(), ShouldBeFalse)
			So(playlist.SegmentURLs, ShouldHaveLength, 1)
		})
	})

	Convey("Given an empty playlist", t, func() {
		So(ParsePlaylist("#EXTM3U\n#EXT-X-ENDLIST").SegmentURLs, ShouldBeEmpty)
	})
}

func TestSegmentName(t *testing.T) {
	Convey("Segment names derive from the playlist index and URL path", t, func() {
		So(segmentName(5, "https://cdn.example.com/a/b/seg-042.ts?token=xyz"), ShouldEqual, "0005-seg-042.ts")
		So(segmentName(0, "http://cdn.example.com/plain.ts"), ShouldEqual, "0000-plain.ts")
	})

	Convey("URLs sharing a basename under different prefixes stay distinct", t, func() {
		a := segmentName(0, "https://cdn.example.com/part1/seg.ts")
		b := segmentName(1, "https://cdn.example.com/part2/seg.ts")
		So(a, ShouldNotEqual, b)
	})
}

func TestRunPool(t *testing.T) {
	Convey("Given a bounded worker pool", t, func() {
		Convey("It never exceeds the requested width", func() {
			var active, peak int64

			jobs := make([]func() error, 32)
			for i := range jobs {
				jobs[i] = func() error {
					now := atomic.AddInt64(&active, 1)
					for {
						prev := atomic.LoadInt64(&peak)
						if now <= prev || atomic.CompareAndSwapInt64(&peak, prev, now) {
							break
						}
					}
					atomic.AddInt64(&active, -1)
					return nil
				}
			}

			failed := runPool(4, jobs)
			So(failed, ShouldEqual, 0)
			So(atomic.LoadInt64(&peak), ShouldBeLessThanOrEqualTo, 4)
		})

		Convey("It counts failures without aborting siblings", func() {
			var completed int64

			jobs := make([]func() error, 10)
			for i := range jobs {
				fail := i%2 == 0
				jobs[i] = func() error {
					atomic.AddInt64(&completed, 1)
					if fail {
						return fmt.Errorf("job failed")
					}
					return nil
				}
			}

			So(runPool(3, jobs), ShouldEqual, 5)
			So(atomic.LoadInt64(&completed), ShouldEqual, 10)
		})

		Convey("A non-positive width still makes progress", func() {
			ran := false
			So(runPool(0, []func() error{func() error { ran = true; return nil }}), ShouldEqual, 0)
			So(ran, ShouldBeTrue)
		})
	})
}

// encryptSegment is the test-side inverse of decryptSegment.
func encryptSegment(plaintext, key []byte) []byte {
	padding := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(padding)}, padding)...)

	block, _ := aes.NewCipher(key)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(ciphertext, padded)
	return ciphertext
}

func TestDecryptSegment(t *testing.T) {
	Convey("Given an AES-128-CBC encrypted segment", t, func() {
		streamKey := []byte("0123456789abcdef")
		plaintext := []byte("not quite a transport stream but close enough")

		src := "/tmp/seg.ts.encrypted"
		dst := "/tmp/seg.ts"
		So(filesystem.API().WriteFile(src, encryptSegment(plaintext, streamKey), 0644), ShouldBeNil)

		Convey("Decryption restores the original bytes", func() {
			So(decryptSegment(src, dst, streamKey), ShouldBeNil)

			restored, err := filesystem.API().ReadFile(dst)
			So(err, ShouldBeNil)
			So(restored, ShouldResemble, plaintext)
		})

		Convey("A truncated ciphertext is rejected", func() {
			So(filesystem.API().WriteFile(src, []byte("short"), 0644), ShouldBeNil)
			So(decryptSegment(src, dst, streamKey), ShouldNotBeNil)
		})
	})
}

func TestStripPadding(t *testing.T) {
	Convey("PKCS#7 padding validation", t, func() {
		Convey("Valid padding is removed", func() {
			data := append([]byte("abc"), bytes.Repeat([]byte{13}, 13)...)
			stripped, err := stripPadding(data)
			So(err, ShouldBeNil)
			So(stripped, ShouldResemble, []byte("abc"))
		})

		Convey("An out-of-range padding byte fails", func() {
			_, err := stripPadding(append(bytes.Repeat([]byte{0}, 15), 17))
			So(err, ShouldNotBeNil)
		})

		Convey("Inconsistent padding bytes fail", func() {
			data := append([]byte("abcdefghijklm"), 1, 2, 3)
			_, err := stripPadding(data)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBuildManifest(t *testing.T) {
	Convey("Given decrypted segments on disk", t, func() {
		workDir := "/manifest-test"
		names := []string{"seg-b.ts", "seg-a.ts", "seg-c.ts"}

		So(filesystem.API().MkdirAll(workDir, 0755), ShouldBeNil)
		for _, name := range names {
			So(filesystem.API().WriteFile(filepath.Join(workDir, name), []byte("x"), 0644), ShouldBeNil)
		}

		Convey("The manifest lists files in the given order, not sorted", func() {
			path, err := buildManifest(workDir, names)
			So(err, ShouldBeNil)

			content, err := filesystem.API().ReadFile(path)
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "file 'seg-b.ts'\nfile 'seg-a.ts'\nfile 'seg-c.ts'\n")
		})

		Convey("A missing segment file fails the manifest", func() {
			_, err := buildManifest(workDir, append(names, "seg-missing.ts"))
			So(err, ShouldWrap, ErrMissingSegmentFile)
		})
	})
}

func TestAcquireAndDecrypt(t *testing.T) {
	Convey("Given a provider serving an encrypted stream", t, func() {
		streamKey := []byte("fedcba9876543210")
		segments := map[string][]byte{
			"seg-1.ts": []byte("first segment payload"),
			"seg-2.ts": []byte("second segment payload"),
			"seg-3.ts": []byte("third segment payload"),
		}
		order := []string{"seg-1.ts", "seg-2.ts", "seg-3.ts"}

		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch name := filepath.Base(r.URL.Path); name {
			case "playlist.m3u8":
				fmt.Fprintf(w, "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"%s/stream.key\"\n", server.URL)
				for _, seg := range order {
					fmt.Fprintf(w, "%s/%s\n", server.URL, seg)
				}
				fmt.Fprint(w, "#EXT-X-ENDLIST\n")
			case "stream.key":
				_, _ = w.Write(streamKey)
			default:
				if payload, ok := segments[name]; ok {
					_, _ = w.Write(encryptSegment(payload, streamKey))
					return
				}
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		session := network.NewSession(server.URL)
		workDir := "/acquire-test"
		So(filesystem.API().MkdirAll(workDir, 0755), ShouldBeNil)

		Convey("When the episode is acquired", func() {
			result, err := AcquireAndDecrypt(context.Background(), session, server.URL+"/playlist.m3u8", workDir, Options{Parallelism: 2})
			So(err, ShouldBeNil)

			Convey("Then segments come back decrypted in playlist order", func() {
				So(result.SegmentPaths, ShouldHaveLength, 3)
				for i, path := range result.SegmentPaths {
					So(filepath.Base(path), ShouldEqual, fmt.Sprintf("%04d-%s", i, order[i]))

					content, err := filesystem.API().ReadFile(path)
					So(err, ShouldBeNil)
					So(content, ShouldResemble, segments[order[i]])
				}
			})

			Convey("And the manifest references every segment in order", func() {
				content, err := filesystem.API().ReadFile(result.ManifestPath)
				So(err, ShouldBeNil)
				So(string(content), ShouldEqual, "file '0000-seg-1.ts'\nfile '0001-seg-2.ts'\nfile '0002-seg-3.ts'\n")
			})

			Convey("And the key material does not outlive the run", func() {
				exists, err := filesystem.API().Exists(filepath.Join(workDir, keyFilename))
				So(err, ShouldBeNil)
				So(exists, ShouldBeFalse)
			})
		})
	})

	Convey("Given a provider serving a keyless plaintext stream", t, func() {
		segments := map[string][]byte{
			"open-1.ts": {0x47, 0x40, 0x11, 0x10},
			"open-2.ts": {0x47, 0x41, 0x00, 0x20},
		}
		order := []string{"open-1.ts", "open-2.ts"}

		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch name := filepath.Base(r.URL.Path); name {
			case "playlist.m3u8":
				fmt.Fprint(w, "#EXTM3U\n")
				for _, seg := range order {
					fmt.Fprintf(w, "%s/%s\n", server.URL, seg)
				}
				fmt.Fprint(w, "#EXT-X-ENDLIST\n")
			default:
				if payload, ok := segments[name]; ok {
					_, _ = w.Write(payload)
					return
				}
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		workDir := "/acquire-keyless"
		So(filesystem.API().MkdirAll(workDir, 0755), ShouldBeNil)

		Convey("When the episode is acquired", func() {
			result, err := AcquireAndDecrypt(context.Background(), network.NewSession(server.URL), server.URL+"/playlist.m3u8", workDir, Options{Parallelism: 2})
			So(err, ShouldBeNil)

			Convey("Then segments land unmodified in playlist order", func() {
				So(result.SegmentPaths, ShouldHaveLength, 2)
				for i, path := range result.SegmentPaths {
					So(filepath.Base(path), ShouldEqual, fmt.Sprintf("%04d-%s", i, order[i]))

					content, err := filesystem.API().ReadFile(path)
					So(err, ShouldBeNil)
					So(content, ShouldResemble, segments[order[i]])
				}
			})

			Convey("And no staged download files linger", func() {
				for i, seg := range order {
					exists, err := filesystem.API().Exists(filepath.Join(workDir, fmt.Sprintf("%04d-%s", i, seg)+encryptedSuffix))
					So(err, ShouldBeNil)
					So(exists, ShouldBeFalse)
				}
			})

			Convey("And the manifest orders the adopted segments", func() {
				content, err := filesystem.API().ReadFile(result.ManifestPath)
				So(err, ShouldBeNil)
				So(string(content), ShouldEqual, "file '0000-open-1.ts'\nfile '0001-open-2.ts'\n")
			})
		})
	})

	Convey("Given a playlist with an unreachable segment", t, func() {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch filepath.Base(r.URL.Path) {
			case "playlist.m3u8":
				fmt.Fprintf(w, "#EXTM3U\n%s/present.ts\n%s/gone.ts\n#EXT-X-ENDLIST\n", server.URL, server.URL)
			case "present.ts":
				_, _ = w.Write([]byte("payload"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		workDir := "/acquire-mismatch"
		So(filesystem.API().MkdirAll(workDir, 0755), ShouldBeNil)

		Convey("The whole acquisition fails rather than yielding a partial set", func() {
			_, err := AcquireAndDecrypt(context.Background(), network.NewSession(server.URL), server.URL+"/playlist.m3u8", workDir, Options{Parallelism: 2})
			So(err, ShouldWrap, ErrSegmentCountMismatch)
		})
	})

	Convey("Given an empty playlist", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "#EXTM3U\n#EXT-X-ENDLIST\n")
		}))
		defer server.Close()

		workDir := "/acquire-empty"
		So(filesystem.API().MkdirAll(workDir, 0755), ShouldBeNil)

		Convey("Acquisition fails with the empty playlist error", func() {
			_, err := AcquireAndDecrypt(context.Background(), network.NewSession(server.URL), server.URL+"/playlist.m3u8", workDir, Options{})
			So(err, ShouldWrap, ErrEmptyPlaylist)
		})
	})
}
