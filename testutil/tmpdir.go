package testutil

import (
	"io/ioutil"
	"os"

	"github.com/smartystreets/goconvey/convey"
)

/*
	Decorates a GoConvey test func with a fresh temp dir,
	removed again when the test func returns.
*/
func WithTmpdir(fn func(tmpDir string)) func() {
	return func() {
		tmpDir, err := ioutil.TempDir("", "courier-test-")
		convey.So(err, convey.ShouldBeNil)
		defer os.RemoveAll(tmpDir)
		fn(tmpDir)
	}
}
