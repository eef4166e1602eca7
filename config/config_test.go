package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/testutil"
)

func TestSettings(t *testing.T) {
	Convey("Settings loading:", t, func() {
		Convey("defaults are valid", func() {
			s := Default()
			So(s.Validate(), ShouldBeNil)
			So(s.ControlPort, ShouldEqual, "8989")
			So(s.MasterAddress, ShouldEqual, "http://localhost:8989")
		})
		Convey("env overrides defaults", func() {
			env := map[string]string{
				"DISCO_MASTER": "http://master:9000",
				"DISCO_PORT":   "9000",
				"DDFS_ROOT":    "/srv/ddfs",
				"DISCO_PROXY":  "http://proxyhost",
			}
			s := ApplyEnv(Default(), func(k string) string { return env[k] })
			So(s.MasterAddress, ShouldEqual, "http://master:9000")
			So(s.ControlPort, ShouldEqual, "9000")
			So(s.FilesystemRoot, ShouldEqual, "/srv/ddfs")
			So(s.JobDataRoot, ShouldEqual, Default().JobDataRoot)
			So(s.ProxyAddress, ShouldEqual, "http://proxyhost")
		})
		Convey("a port alone moves the defaulted master along", func() {
			s := ApplyEnv(Default(), func(k string) string {
				if k == "DISCO_PORT" {
					return "7000"
				}
				return ""
			})
			So(s.MasterAddress, ShouldEqual, "http://localhost:7000")
		})
		Convey("a yaml file is overlaid", testutil.WithTmpdir(func(tmpDir string) {
			pth := filepath.Join(tmpDir, "courier.yaml")
			So(ioutil.WriteFile(pth, []byte("master: http://m:8989\nddfsRoot: /data/ddfs\n"), 0644), ShouldBeNil)
			s, err := LoadFile(Default(), pth)
			So(err, ShouldBeNil)
			So(s.MasterAddress, ShouldEqual, "http://m:8989")
			So(s.FilesystemRoot, ShouldEqual, "/data/ddfs")
			So(s.ControlPort, ShouldEqual, "8989")
		}))
		Convey("a missing file is a usage error", func() {
			_, err := LoadFile(Default(), "/nonexistent/courier.yaml")
			So(Category(err), ShouldEqual, courier.ErrUsage)
		})
		Convey("Load layers file, env, then overrides", testutil.WithTmpdir(func(tmpDir string) {
			pth := filepath.Join(tmpDir, "courier.yaml")
			So(ioutil.WriteFile(pth, []byte("master: http://file:8989\nddfsRoot: /file/ddfs\ndataRoot: /file/data\n"), 0644), ShouldBeNil)
			env := map[string]string{
				"COURIER_CONFIG": pth,
				"DDFS_ROOT":      "/env/ddfs",
				"DISCO_PROXY":    "http://envproxy",
			}
			getenv := func(k string) string { return env[k] }

			s, err := Load("", getenv, Settings{ProxyAddress: "http://flagproxy"})
			So(err, ShouldBeNil)
			So(s.MasterAddress, ShouldEqual, "http://file:8989")
			So(s.FilesystemRoot, ShouldEqual, "/env/ddfs")
			So(s.JobDataRoot, ShouldEqual, "/file/data")
			So(s.ProxyAddress, ShouldEqual, "http://flagproxy")

			Convey("an explicit path beats COURIER_CONFIG", func() {
				env["COURIER_CONFIG"] = "/nonexistent/courier.yaml"
				s, err := Load(pth, getenv, Settings{})
				So(err, ShouldBeNil)
				So(s.MasterAddress, ShouldEqual, "http://file:8989")
			})
			Convey("an unreadable file is a usage error", func() {
				_, err := Load(filepath.Join(tmpDir, "nope.yaml"), getenv, Settings{})
				So(Category(err), ShouldEqual, courier.ErrUsage)
			})
			Convey("invalid overrides fail validation", func() {
				_, err := Load("", getenv, Settings{ControlPort: "http"})
				So(Category(err), ShouldEqual, courier.ErrUsage)
			})
		}))
		Convey("Load with nothing set is the defaults", func() {
			s, err := Load("", func(string) string { return "" }, Settings{})
			So(err, ShouldBeNil)
			So(s, ShouldResemble, Default())
		})
		Convey("validation rejects bad values", func() {
			for _, tr := range []struct {
				title string
				mod   func(*Settings)
			}{
				{"empty master", func(s *Settings) { s.MasterAddress = "" }},
				{"non-numeric port", func(s *Settings) { s.ControlPort = "http" }},
				{"relative ddfs root", func(s *Settings) { s.FilesystemRoot = "ddfs" }},
				{"relative data root", func(s *Settings) { s.JobDataRoot = "./data" }},
			} {
				Convey(tr.title, func() {
					s := Default()
					tr.mod(&s)
					So(Category(s.Validate()), ShouldEqual, courier.ErrUsage)
				})
			}
		})
	})
}
