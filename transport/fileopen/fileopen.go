package fileopen

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/locator"
	"github.com/polydawn/courier/transport"
)

var (
	_ transport.Transport = Transport{}
)

/*
	Transport opens `file://` locators and bare paths on the local filesystem.

	`file://host//abs/path` (the shape the resolver produces for data owned
	by this node) is read as `/abs/path`; the host is ignored.
*/
type Transport struct{}

func (Transport) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	if err := transport.ContextError(ctx, url); err != nil {
		return nil, 0, url, err
	}
	pth, err := LocalPath(url)
	if err != nil {
		return nil, 0, url, err
	}
	finalURL := "file://" + pth
	file, err := os.OpenFile(pth, os.O_RDONLY, 0)
	switch {
	case err == nil:
		// pass
	case os.IsNotExist(err):
		return nil, 0, finalURL, Errorf(courier.ErrDataNotFound, "%s not found: %s", url, err)
	default:
		return nil, 0, finalURL, Errorf(courier.ErrDataUnavailable, "%s could not be opened: %s", url, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, finalURL, Errorf(courier.ErrDataUnavailable, "%s could not be opened: %s", url, err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, 0, finalURL, Errorf(courier.ErrDataNotFound, "%s is a directory", url)
	}
	return file, stat.Size(), finalURL, nil
}

/*
	Return the absolute filesystem path a `file://` locator or bare path names.

	May return errors of category:

	  - `courier.ErrUsage` -- for other schemes
*/
func LocalPath(url string) (string, error) {
	scheme, rest := locator.SchemeSplit(url)
	switch scheme {
	case locator.SchemeLocal:
	case locator.SchemeFile:
		// A leading dot means a relative path; a leading slash means no host.
		//  Anything else has a host segment to skip.
		if !strings.HasPrefix(rest, "/") && !strings.HasPrefix(rest, ".") {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[i:]
			} else {
				rest = "/"
			}
		}
	default:
		return "", Errorf(courier.ErrUsage, "unsupported scheme %q for local files (valid options are 'file' or none)", scheme)
	}
	pth, err := filepath.Abs(rest)
	if err != nil {
		return "", Errorf(courier.ErrUsage, "cannot make %q absolute: %s", rest, err)
	}
	return pth, nil
}
