/*
	Helpers for loading the settings snapshot.

	Settings for courier are "facts about the cluster this process runs in":
	where the master is, which port the platform's control plane listens on,
	where the local node keeps ddfs blobs and job data, and whether all
	node traffic must route through a proxy.
	They are loaded once per process and never change afterwards; every
	resolver and expander is handed the same immutable snapshot.

	Values come from, in increasing precedence: built-in defaults,
	an optional YAML file named by `COURIER_CONFIG`, and the `DISCO_*`
	environment variables.
*/
package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/yaml.v3"

	"github.com/polydawn/courier"
)

type Settings struct {
	MasterAddress  string `yaml:"master"`   // e.g. "http://master:8989".  Used when a `dir://` or `tag://` names no host.
	ControlPort    string `yaml:"port"`     // The platform's control port.  Authorities on this port are platform-internal.
	FilesystemRoot string `yaml:"ddfsRoot"` // Local root for the "ddfs" namespace.
	JobDataRoot    string `yaml:"dataRoot"` // Local root for the "disco" (job data) namespace.
	ProxyAddress   string `yaml:"proxy"`    // Optional.  If set, all node fetches route through it.
}

const (
	DefaultControlPort = "8989"
	DefaultBasePath    = "/usr/var/disco"
)

/*
	Return the built-in settings.

	The master defaults to `http://localhost:<port>`; both filesystem roots
	live under `DefaultBasePath`.
*/
func Default() Settings {
	return Settings{
		MasterAddress:  "http://localhost:" + DefaultControlPort,
		ControlPort:    DefaultControlPort,
		FilesystemRoot: filepath.Join(DefaultBasePath, "ddfs"),
		JobDataRoot:    filepath.Join(DefaultBasePath, "data"),
	}
}

/*
	Load the process's settings snapshot: defaults, then the YAML file at
	pth (or named by `COURIER_CONFIG`, if pth is empty), then environment
	variables read through getenv, then the non-empty fields of overrides.

	May return errors of category:

	  - `courier.ErrUsage` -- if the file can't be read or parsed, or the result is invalid
*/
func Load(pth string, getenv func(string) string, overrides Settings) (Settings, error) {
	s := Default()
	if pth == "" {
		pth = getenv("COURIER_CONFIG")
	}
	if pth != "" {
		var err error
		s, err = LoadFile(s, pth)
		if err != nil {
			return s, err
		}
	}
	s = merge(ApplyEnv(s, getenv), overrides)
	return s, s.Validate()
}

// LoadFile overlays the non-empty values from a YAML settings file onto base.
func LoadFile(base Settings, pth string) (Settings, error) {
	body, err := ioutil.ReadFile(pth)
	if err != nil {
		return base, Errorf(courier.ErrUsage, "cannot read settings file %q: %s", pth, err)
	}
	var overlay Settings
	if err := yaml.Unmarshal(body, &overlay); err != nil {
		return base, Errorf(courier.ErrUsage, "cannot parse settings file %q: %s", pth, err)
	}
	return merge(base, overlay), nil
}

/*
	Overlay environment variables onto base.

	The variable names are the ones the rest of the platform already uses:
	`DISCO_MASTER`, `DISCO_PORT`, `DDFS_ROOT`, `DISCO_DATA`, `DISCO_PROXY`.
	When only `DISCO_PORT` is given, a defaulted master address follows it.
*/
func ApplyEnv(base Settings, getenv func(string) string) Settings {
	if v := getenv("DISCO_PORT"); v != "" && v != base.ControlPort {
		if base.MasterAddress == Default().MasterAddress {
			base.MasterAddress = "http://localhost:" + v
		}
		base.ControlPort = v
	}
	return merge(base, Settings{
		MasterAddress:  getenv("DISCO_MASTER"),
		FilesystemRoot: getenv("DDFS_ROOT"),
		JobDataRoot:    getenv("DISCO_DATA"),
		ProxyAddress:   getenv("DISCO_PROXY"),
	})
}

func merge(base, overlay Settings) Settings {
	if overlay.MasterAddress != "" {
		base.MasterAddress = overlay.MasterAddress
	}
	if overlay.ControlPort != "" {
		base.ControlPort = overlay.ControlPort
	}
	if overlay.FilesystemRoot != "" {
		base.FilesystemRoot = overlay.FilesystemRoot
	}
	if overlay.JobDataRoot != "" {
		base.JobDataRoot = overlay.JobDataRoot
	}
	if overlay.ProxyAddress != "" {
		base.ProxyAddress = overlay.ProxyAddress
	}
	return base
}

// Validate returns a `courier.ErrUsage` error describing the first invalid setting, or nil.
func (s Settings) Validate() error {
	if s.MasterAddress == "" {
		return Errorf(courier.ErrUsage, "master address must be set")
	}
	if _, err := strconv.ParseUint(s.ControlPort, 10, 16); err != nil {
		return Errorf(courier.ErrUsage, "control port must be a port number (got %q)", s.ControlPort)
	}
	for _, root := range []struct{ name, pth string }{
		{"ddfs root", s.FilesystemRoot},
		{"data root", s.JobDataRoot},
	} {
		if !filepath.IsAbs(root.pth) {
			return Errorf(courier.ErrUsage, "%s must be an absolute path (got %q)", root.name, root.pth)
		}
	}
	return nil
}

func (s Settings) String() string {
	return fmt.Sprintf("master=%s port=%s ddfs=%s data=%s proxy=%s",
		s.MasterAddress, s.ControlPort, s.FilesystemRoot, s.JobDataRoot, s.ProxyAddress)
}
