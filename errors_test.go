package courier

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"
)

func TestErrorFamilies(t *testing.T) {
	Convey("Error families:", t, func() {
		for _, tr := range []struct {
			category  ErrorCategory
			transient bool
		}{
			{ErrDataUnavailable, true},
			{ErrDataNotFound, true},
			{ErrCancelled, true},
			{ErrMalformedLocator, false},
			{ErrResolveLoop, false},
			{ErrEncoding, false},
			{ErrCorrupt, false},
			{ErrCall, false},
			{ErrIndexCorrupt, false},
			{ErrReplicaMismatch, false},
			{ErrUsage, false},
			{ErrRPCBreakdown, false},
		} {
			Convey(string(tr.category), func() {
				So(IsTransient(Errorf(tr.category, "x")), ShouldEqual, tr.transient)
			})
		}
		Convey("no error isn't transient", func() {
			So(IsTransient(nil), ShouldBeFalse)
		})
		Convey("an uncategorized error is", func() {
			So(IsTransient(fmt.Errorf("connection reset")), ShouldBeTrue)
		})
	})
}

func TestExitCodes(t *testing.T) {
	Convey("Exit codes map back to their categories", t, func() {
		for _, cat := range []ErrorCategory{
			ErrUsage, ErrMalformedLocator, ErrResolveLoop, ErrEncoding, ErrCorrupt, ErrCall,
			ErrIndexCorrupt, ErrReplicaMismatch, ErrDataUnavailable, ErrDataNotFound, ErrCancelled, ErrInternal,
		} {
			So(CategoryForExitCode(ExitCodeForCategory(cat)), ShouldEqual, cat)
		}
		So(ExitCodeForCategory(nil), ShouldEqual, ExitSuccess)
		So(ExitCodeForCategory("someone-elses-category"), ShouldEqual, ExitInternal)
	})
}

func TestEventResult(t *testing.T) {
	Convey("Event_Result.SetError:", t, func() {
		r := &Event_Result{}
		Convey("keeps the category and details", func() {
			r.SetError(ErrorDetailed(ErrReplicaMismatch, "disagree", map[string]string{"first": "a"}))
			So(r.Error.Category, ShouldEqual, ErrReplicaMismatch)
			So(r.Error.Message, ShouldEqual, "disagree")
			So(r.Error.Details, ShouldResemble, map[string]string{"first": "a"})
		})
		Convey("files uncategorized errors as internal", func() {
			r.SetError(fmt.Errorf("boom"))
			So(r.Error.Category, ShouldEqual, ErrInternal)
			So(r.Error.Message, ShouldEqual, "boom")
		})
		Convey("clears on nil", func() {
			r.SetError(fmt.Errorf("boom"))
			r.SetError(nil)
			So(r.Error, ShouldBeNil)
		})
	})
}
