package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anigrab-cli/anigrab/network"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

const samplePlayPage = `
<div id="resolutionMenu">
<button class="dropdown-item" data-src="https://host.example.com/e/aaa" data-resolution="720" data-audio="jpn" data-av1="0">SubsGroup &middot; 720p</button>
<button class="dropdown-item" data-src="https://host.example.com/e/bbb" data-resolution="1080" data-audio="jpn" data-av1="0">SubsGroup &middot; 1080p</button>
<button class="dropdown-item" data-src="https://host.example.com/e/ccc" data-resolution="1080" data-audio="eng" data-av1="0">DubsGroup &middot; 1080p</button>
<button class="dropdown-item" data-src="https://host.example.com/e/ddd" data-resolution="2160" data-audio="jpn" data-av1="1">SubsGroup &middot; 4K av1</button>
</div>`

func TestExtractVariants(t *testing.T) {
	Convey("Given a play page with stream variant buttons", t, func() {
		variants := ExtractVariants(samplePlayPage)

		Convey("Every button yields a variant in page order", func() {
			So(variants, ShouldHaveLength, 4)
			So(variants[0].Resolution, ShouldEqual, 720)
			So(variants[0].Audio, ShouldEqual, "jpn")
			So(variants[0].RedirectURL, ShouldEqual, "https://host.example.com/e/aaa")
			So(variants[3].Incompatible, ShouldBeTrue)
		})

		Convey("A page without buttons yields nothing", func() {
			So(ExtractVariants("<html><body>nothing here</body></html>"), ShouldBeEmpty)
		})
	})
}

func TestSelectVariant(t *testing.T) {
	Convey("Given the extracted variants", t, func() {
		variants := ExtractVariants(samplePlayPage)

		Convey("No preferences picks the highest compatible resolution", func() {
			chosen, err := SelectVariant(variants, Preferences{})
			So(err, ShouldBeNil)
			So(chosen.Resolution, ShouldEqual, 1080)
			// 2160p is av1 and must never win.
			So(chosen.Incompatible, ShouldBeFalse)
		})

		Convey("Ties resolve to the earliest variant on the page", func() {
			chosen, err := SelectVariant(variants, Preferences{})
			So(err, ShouldBeNil)
			So(chosen.Audio, ShouldEqual, "jpn")
		})

		Convey("An audio preference narrows the candidates", func() {
			chosen, err := SelectVariant(variants, Preferences{Audio: mo.Some("eng")})
			So(err, ShouldBeNil)
			So(chosen.Audio, ShouldEqual, "eng")
		})

		Convey("A resolution preference overrides highest-wins", func() {
			chosen, err := SelectVariant(variants, Preferences{Resolution: mo.Some(720)})
			So(err, ShouldBeNil)
			So(chosen.Resolution, ShouldEqual, 720)
		})

		Convey("An unsatisfiable preference is ignored, not fatal", func() {
			chosen, err := SelectVariant(variants, Preferences{Resolution: mo.Some(480), Audio: mo.Some("fra")})
			So(err, ShouldBeNil)
			So(chosen.Resolution, ShouldEqual, 1080)
		})

		Convey("Only incompatible variants means no variants", func() {
			_, err := SelectVariant([]Variant{{RedirectURL: "x", Incompatible: true}}, Preferences{})
			So(err, ShouldWrap, ErrNoVariants)
		})

		Convey("An empty page means no variants", func() {
			_, err := SelectVariant(nil, Preferences{})
			So(err, ShouldWrap, ErrNoVariants)
		})
	})
}

// packedSample mimics the host page packer: the outer eval receives the
// decoded player source from the inner function call.
const packedSample = `<script>document.write('');eval(function(p,a,c,k,e,d){return p}('var player=new Plyr("#player");source=\'https://vault.example.com/stream/01/master.m3u8\';',36,36,[],0,{}))</script>`

func TestPackedScript(t *testing.T) {
	Convey("Given a stream host page", t, func() {
		page := "<html><script>var unrelated=1;</script>" + packedSample + "</html>"

		Convey("The packed block is located among the script tags", func() {
			script, err := ExtractPackedScript(page)
			So(err, ShouldBeNil)
			So(script, ShouldContainSubstring, "eval(function(p,a,c,k,e,")
		})

		Convey("A page without the packer cannot be resolved", func() {
			_, err := ExtractPackedScript("<html><script>var x=1;</script></html>")
			So(err, ShouldWrap, ErrScriptExtraction)
		})

		Convey("The transform reroutes DOM access and captures the eval", func() {
			script, _ := ExtractPackedScript(page)
			transformed := transformScript(script)

			So(transformed, ShouldNotContainSubstring, "document")
			So(transformed, ShouldNotContainSubstring, "eval(function(p,a,c,k,e,")
			So(transformed, ShouldContainSubstring, "__capture(function(p,a,c,k,e,")
			So(transformed, ShouldContainSubstring, "__page")
		})

		Convey("Evaluation yields the unpacked player source", func() {
			script, _ := ExtractPackedScript(page)
			output, err := evaluateScript(transformScript(script), time.Second)
			So(err, ShouldBeNil)
			So(output, ShouldContainSubstring, "master.m3u8")
		})

		Convey("A runaway script is interrupted", func() {
			_, err := evaluateScript("for(;;){}", 50*time.Millisecond)
			So(err, ShouldWrap, ErrScriptExecution)
		})
	})
}

func TestPlaylistURLFrom(t *testing.T) {
	Convey("Given unpacked player source", t, func() {
		Convey("The playlist assignment is found", func() {
			url, err := playlistURLFrom(`const player=1;source='https://vault.example.com/stream/01/master.m3u8';more=2;`)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://vault.example.com/stream/01/master.m3u8")
		})

		Convey("Output without a playlist reference fails", func() {
			_, err := playlistURLFrom("var nothing = 'to see here';")
			So(err, ShouldWrap, ErrNoPlaylistURL)
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given a provider play page and stream host", t, func() {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/play/series/episode":
				fmt.Fprintf(w, `<button data-src="%s/e/xyz" data-resolution="1080" data-audio="jpn" data-av1="0"></button>`, server.URL)
			case "/e/xyz":
				fmt.Fprint(w, packedSample)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		session := network.NewSession(server.URL)

		Convey("Resolution walks the whole chain to the playlist URL", func() {
			url, err := Resolve(context.Background(), session, server.URL+"/play/series/episode", Preferences{})
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://vault.example.com/stream/01/master.m3u8")
		})

		Convey("An unreachable play page fails fast", func() {
			_, err := Resolve(context.Background(), session, server.URL+"/missing", Preferences{})
			So(err, ShouldWrap, ErrPageUnreachable)
		})
	})
}
