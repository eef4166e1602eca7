package fileopen

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/testutil"
)

func TestLocalPath(t *testing.T) {
	Convey("LocalPath suite:", t, func() {
		for _, tr := range []struct {
			in  string
			out string
		}{
			{"file:///srv/ddfs/x", "/srv/ddfs/x"},
			{"file://node3//srv/ddfs/x", "/srv/ddfs/x"},
			{"file://node3/srv/ddfs/x", "/srv/ddfs/x"},
			{"/srv/ddfs/x", "/srv/ddfs/x"},
		} {
			Convey(tr.in, func() {
				pth, err := LocalPath(tr.in)
				So(err, ShouldBeNil)
				So(pth, ShouldEqual, tr.out)
			})
		}
		Convey("relative paths are made absolute", func() {
			wd, _ := os.Getwd()
			pth, err := LocalPath("file://./fixtures/x")
			So(err, ShouldBeNil)
			So(pth, ShouldEqual, filepath.Join(wd, "fixtures/x"))
		})
		Convey("other schemes are refused", func() {
			_, err := LocalPath("http://node3/x")
			So(Category(err), ShouldEqual, courier.ErrUsage)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Opening local files:", t, testutil.WithTmpdir(func(tmpDir string) {
		ctx := context.Background()
		pth := filepath.Join(tmpDir, "index")
		So(ioutil.WriteFile(pth, []byte("0 http://a/0\n"), 0644), ShouldBeNil)

		Convey("an existing file opens with its size", func() {
			body, size, final, err := Transport{}.Open(ctx, "file://"+pth)
			So(err, ShouldBeNil)
			defer body.Close()
			So(size, ShouldEqual, 13)
			So(final, ShouldEqual, "file://"+pth)
			bs, err := ioutil.ReadAll(body)
			So(err, ShouldBeNil)
			So(string(bs), ShouldEqual, "0 http://a/0\n")
		})
		Convey("a missing file is not found", func() {
			_, _, _, err := Transport{}.Open(ctx, "file://"+filepath.Join(tmpDir, "nope"))
			So(Category(err), ShouldEqual, courier.ErrDataNotFound)
		})
		Convey("a directory is not found", func() {
			_, _, _, err := Transport{}.Open(ctx, "file://"+tmpDir)
			So(Category(err), ShouldEqual, courier.ErrDataNotFound)
		})
		Convey("a cancelled ctx doesn't touch the disk", func() {
			ctx, cancel := context.WithCancel(ctx)
			cancel()
			_, _, _, err := Transport{}.Open(ctx, "file://"+pth)
			So(Category(err), ShouldEqual, courier.ErrCancelled)
		})
	}))
}
