package ddfs

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/catalog"
	"github.com/polydawn/courier/config"
	"github.com/polydawn/courier/locator"
	"github.com/polydawn/courier/testutil"
)

func TestParseTagDocument(t *testing.T) {
	Convey("ParseTagDocument suite:", t, func() {
		Convey("urls are extracted, other fields ignored", func() {
			urls, err := ParseTagDocument("t", []byte(`{"id":"tag://t","version":1,"urls":[["disco://n1/ddfs/a","disco://n2/ddfs/a"],["disco://n1/ddfs/b"]],"user-data":{}}`))
			So(err, ShouldBeNil)
			So(urls, ShouldResemble, [][]string{
				{"disco://n1/ddfs/a", "disco://n2/ddfs/a"},
				{"disco://n1/ddfs/b"},
			})
		})
		Convey("a document without urls is empty", func() {
			urls, err := ParseTagDocument("t", []byte(`{"id":"tag://t"}`))
			So(err, ShouldBeNil)
			So(urls, ShouldBeEmpty)
		})
		for _, tr := range []struct {
			title string
			doc   string
		}{
			{"not json", `urls: nope`},
			{"urls not a list", `{"urls":"disco://n1/ddfs/a"}`},
			{"blob not a list", `{"urls":["disco://n1/ddfs/a"]}`},
			{"replica not a string", `{"urls":[[true]]}`},
		} {
			Convey(tr.title+" is corrupt", func() {
				_, err := ParseTagDocument("t", []byte(tr.doc))
				So(Category(err), ShouldEqual, courier.ErrCorrupt)
			})
		}
	})
}

func TestResolveTag(t *testing.T) {
	Convey("Resolving tags through the catalog:", t, func() {
		ctx := context.Background()
		resolver := locator.NewResolver(config.Settings{
			MasterAddress:  "http://master:8989",
			ControlPort:    "8989",
			FilesystemRoot: "/srv/ddfs",
			JobDataRoot:    "/srv/data",
		})
		tp := &testutil.MemTransport{Bodies: map[string][]byte{
			"http://master:8989/ddfs/tag/top": []byte(`{"urls":[["disco://n1/ddfs/a","disco://n2/ddfs/a"],["tag://inner"],["tag://top"]]}`),
			"http://master:8989/ddfs/tag/inner": []byte(`{"urls":[["disco://n3/ddfs/c"]]}`),
		}}
		client := NewClient(resolver, tp, courier.Monitor{})

		Convey("nested tags are walked once each", func() {
			listings, err := client.ResolveTag(ctx, "tag://top")
			So(err, ShouldBeNil)
			So(listings, ShouldResemble, []catalog.TagListing{
				{Name: "top", Tags: []string{"inner", "top"}, Blobs: [][]string{{"disco://n1/ddfs/a", "disco://n2/ddfs/a"}}},
				{Name: "inner", Blobs: [][]string{{"disco://n3/ddfs/c"}}},
			})
			So(tp.Opened(), ShouldResemble, []string{
				"http://master:8989/ddfs/tag/top",
				"http://master:8989/ddfs/tag/inner",
			})
		})
		Convey("bare names work too", func() {
			listings, err := client.ResolveTag(ctx, "inner")
			So(err, ShouldBeNil)
			So(listings, ShouldHaveLength, 1)
		})
		Convey("a missing tag propagates the transport's error", func() {
			_, err := client.ResolveTag(ctx, "tag://ghost")
			So(Category(err), ShouldEqual, courier.ErrDataNotFound)
			So(courier.IsTransient(err), ShouldBeTrue)
		})
	})
}
