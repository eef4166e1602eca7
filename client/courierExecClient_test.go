package execclient

import (
	"context"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/testutil"
)

// withBinary points the client at a different executable for the duration of fn.
func withBinary(bin string, fn func()) {
	prev := Binary
	Binary = bin
	defer func() { Binary = prev }()
	fn()
}

// fakeCourier writes a shell script that prints out and exits with code.
func fakeCourier(dir string, out string, code string) string {
	pth := filepath.Join(dir, "courier")
	script := "#!/bin/sh\ncat <<'EOF'\n" + out + "\nEOF\nexit " + code + "\n"
	So(ioutil.WriteFile(pth, []byte(script), 0755), ShouldBeNil)
	return pth
}

func TestArgs(t *testing.T) {
	Convey("Argument marshalling:", t, func() {
		Convey("resolve passes only the overrides given", func() {
			So(ResolveArgs("dir://n1/x", Options{Master: "http://m:8989"}), ShouldResemble, []string{
				"--format=json", "--master=http://m:8989", "resolve", "--", "dir://n1/x",
			})
		})
		Convey("expand joins replicas with commas", func() {
			So(ExpandArgs([][]string{{"dir://a/i", "dir://b/i"}, {"http://c/x"}}, "3", Options{Port: "9000", Proxy: "http://p"}), ShouldResemble, []string{
				"--format=json", "--port=9000", "--proxy=http://p", "expand", "--partition=3", "--", "dir://a/i,dir://b/i", "http://c/x",
			})
		})
	})
}

func TestExec(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("needs a shell to fake the courier binary")
	}
	Convey("Exec client:", t, testutil.WithTmpdir(func(tmpDir string) {
		ctx := context.Background()

		Convey("a resolve answer comes back", func() {
			withBinary(fakeCourier(tmpDir, `{"value":"http://n1:8989/x"}`, "0"), func() {
				url, err := Resolve(ctx, "dir://n1/x", Options{})
				So(err, ShouldBeNil)
				So(url, ShouldEqual, "http://n1:8989/x")
			})
		})
		Convey("an expand answer comes back as groups", func() {
			withBinary(fakeCourier(tmpDir, `{"value":[["a","b"],["c"]]}`, "0"), func() {
				groups, err := Expand(ctx, [][]string{{"dir://n1/x"}}, "", Options{})
				So(err, ShouldBeNil)
				So(groups, ShouldResemble, [][]string{{"a", "b"}, {"c"}})
			})
		})
		Convey("a reported error keeps its category", func() {
			withBinary(fakeCourier(tmpDir, `{"error":{"category":"courier-malformed-locator","message":"bad"}}`, "10"), func() {
				_, err := Resolve(ctx, "disco://x/y", Options{})
				So(Category(err), ShouldEqual, courier.ErrMalformedLocator)
				So(err.Error(), ShouldContainSubstring, "bad")
			})
		})
		Convey("an exit code that disagrees with the message is a breakdown", func() {
			withBinary(fakeCourier(tmpDir, `{"error":{"category":"courier-malformed-locator","message":"bad"}}`, "21"), func() {
				_, err := Resolve(ctx, "disco://x/y", Options{})
				So(Category(err), ShouldEqual, courier.ErrRPCBreakdown)
			})
		})
		Convey("success without a result is a breakdown", func() {
			withBinary(fakeCourier(tmpDir, ``, "0"), func() {
				_, err := Resolve(ctx, "dir://n1/x", Options{})
				So(Category(err), ShouldEqual, courier.ErrRPCBreakdown)
			})
		})
		Convey("the wrong shape of answer is a breakdown", func() {
			withBinary(fakeCourier(tmpDir, `{"value":["not","a","string"]}`, "0"), func() {
				_, err := Resolve(ctx, "dir://n1/x", Options{})
				So(Category(err), ShouldEqual, courier.ErrRPCBreakdown)
			})
		})
		Convey("a child killed by a signal is a breakdown", func() {
			pth := filepath.Join(tmpDir, "courier")
			So(ioutil.WriteFile(pth, []byte("#!/bin/sh\nkill -KILL $$\n"), 0755), ShouldBeNil)
			withBinary(pth, func() {
				_, err := Resolve(ctx, "dir://n1/x", Options{})
				So(Category(err), ShouldEqual, courier.ErrRPCBreakdown)
				So(err.Error(), ShouldContainSubstring, "killed")
			})
		})
		Convey("a cancelled ctx stops the child", func() {
			pth := filepath.Join(tmpDir, "courier")
			So(ioutil.WriteFile(pth, []byte("#!/bin/sh\nexec sleep 30\n"), 0755), ShouldBeNil)
			withBinary(pth, func() {
				ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()
				_, err := Resolve(ctx, "dir://n1/x", Options{})
				So(Category(err), ShouldEqual, courier.ErrCancelled)
			})
		})
		Convey("a missing binary is a breakdown", func() {
			withBinary(filepath.Join(tmpDir, "nope"), func() {
				_, err := Resolve(ctx, "dir://n1/x", Options{})
				So(Category(err), ShouldEqual, courier.ErrRPCBreakdown)
			})
		})
	}))
}
