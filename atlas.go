package courier

import (
	"github.com/polydawn/refmt/obj/atlas"
)

// Atlas covers the types courier emits on its serial API (the CLI's json output).
var Atlas = atlas.MustBuild(
	atlas.BuildEntry(Event_Result{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(ErrorInfo{}).StructMap().Autogenerate().Complete(),
)
