package dirindex

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/testutil"
)

func TestParseIndex(t *testing.T) {
	Convey("ParseIndex suite:", t, func() {
		plain := testutil.IndexBody(
			testutil.IndexLine{"1", "http://n1/b"},
			testutil.IndexLine{"0", "http://n1/a"},
		)
		want := Index{{"1", "http://n1/b"}, {"0", "http://n1/a"}}

		Convey("plain lines keep manifest order", func() {
			idx, err := ParseIndex("dir://n1/disco/index", bytes.NewReader(plain))
			So(err, ShouldBeNil)
			So(idx, ShouldResemble, want)
		})
		Convey("blank lines and extra whitespace are fine", func() {
			idx, err := ParseIndex("dir://n1/disco/index", strings.NewReader("\n1\thttp://n1/b  \n\n  0 http://n1/a\n"))
			So(err, ShouldBeNil)
			So(idx, ShouldResemble, want)
		})
		Convey("a .gz suffix means gzip", func() {
			idx, err := ParseIndex("dir://n1/disco/index.gz", bytes.NewReader(testutil.Gzip(plain)))
			So(err, ShouldBeNil)
			So(idx, ShouldResemble, want)
		})
		Convey("a .xz suffix means xz", func() {
			body, err := ioutil.ReadFile("testdata/index.xz")
			So(err, ShouldBeNil)
			idx, err := ParseIndex("dir://n1/disco/index.xz", bytes.NewReader(body))
			So(err, ShouldBeNil)
			So(idx, ShouldHaveLength, 3)
			So(idx[0], ShouldResemble, Entry{"2", "http://n1:8989/disco/n1/ab/job@1/part-2"})
		})
		for _, tr := range []struct {
			title string
			dir   string
			body  []byte
		}{
			{"a line with one field", "dir://n1/disco/index", []byte("0\n")},
			{"a line with three fields", "dir://n1/disco/index", []byte("0 http://n1/a extra\n")},
			{"a broken gzip stream", "dir://n1/disco/index.gz", []byte("not gzip")},
			{"a broken xz stream", "dir://n1/disco/index.xz", []byte("not xz at all")},
		} {
			Convey(tr.title+" is corrupt", func() {
				_, err := ParseIndex(tr.dir, bytes.NewReader(tr.body))
				So(Category(err), ShouldEqual, courier.ErrIndexCorrupt)
				So(courier.IsTransient(err), ShouldBeFalse)
			})
		}
	})
}

func TestIndexSorted(t *testing.T) {
	Convey("Index.Sorted suite:", t, func() {
		idx := Index{
			{"2", "http://n1/c"},
			{"0", "http://n1/a1"},
			{"1", "http://n1/b"},
			{"0", "http://n1/a2"},
		}
		Convey("sorts by partition, keeping manifest order within one", func() {
			So(idx.Sorted(AnyPartition).URLs(), ShouldResemble, []string{
				"http://n1/a1", "http://n1/a2", "http://n1/b", "http://n1/c",
			})
		})
		Convey("filters to one partition", func() {
			So(idx.Sorted(OnlyPartition("0")).URLs(), ShouldResemble, []string{
				"http://n1/a1", "http://n1/a2",
			})
		})
		Convey("a partition that isn't there yields nothing", func() {
			So(idx.Sorted(OnlyPartition("9")), ShouldBeEmpty)
		})
		Convey("doesn't disturb the original", func() {
			idx.Sorted(AnyPartition)
			So(idx[0].URL, ShouldEqual, "http://n1/c")
		})
	})
	Convey("Filter strings:", t, func() {
		So(AnyPartition.String(), ShouldEqual, "*")
		So(OnlyPartition("3").String(), ShouldEqual, "3")
	})
}
