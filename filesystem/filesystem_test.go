package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

func TestBackendSwitch(t *testing.T) {
	Convey("Filesystem backend", t, func() {
		Convey("Should switch to in-memory backend", func() {
			SetMemMapFs()
			_, ok := API().Fs.(*afero.MemMapFs)
			So(ok, ShouldBeTrue)
		})

		Convey("Should restore the OS backend", func() {
			SetOsFs()
			_, ok := API().Fs.(*afero.OsFs)
			So(ok, ShouldBeTrue)
		})
	})
}
