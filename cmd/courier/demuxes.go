package main

import (
	"github.com/polydawn/courier/locator"
	"github.com/polydawn/courier/transport"
	"github.com/polydawn/courier/transport/afsopen"
	"github.com/polydawn/courier/transport/fileopen"
	"github.com/polydawn/courier/transport/httpopen"
)

// https isn't a platform scheme, so locator has no constant for it.
const SchemeHTTPS locator.Scheme = "https"

/*
	The default transport: local paths and `file://` are read directly,
	`http(s)://` goes over net/http, and any other scheme is handed to afs.
*/
func demuxTransport() transport.Transport {
	local := fileopen.Transport{}
	web := httpopen.Transport{}
	return transport.Mux{
		Schemes: map[locator.Scheme]transport.Transport{
			locator.SchemeLocal: local,
			locator.SchemeFile:  local,
			locator.SchemeHTTP:  web,
			SchemeHTTPS:         web,
		},
		Fallback: afsopen.New(nil),
	}
}
