package execclient

import (
	"strings"
)

/*
	Options are the cluster settings to pass the child process explicitly.
	Empty fields are left to the child's own environment and settings file.
*/
type Options struct {
	Master string
	Port   string
	Proxy  string
}

func (o Options) flags() []string {
	// Always json: it's the only format we can parse back.
	args := []string{"--format=json"}

	// Append settings overrides if specified.
	//  (We could just pass 'em all even when emptystr, but that would override the child's env with blanks.)
	if o.Master != "" {
		args = append(args, "--master="+o.Master)
	}
	if o.Port != "" {
		args = append(args, "--port="+o.Port)
	}
	if o.Proxy != "" {
		args = append(args, "--proxy="+o.Proxy)
	}
	return args
}

func ResolveArgs(locator string, opts Options) []string {
	args := append(opts.flags(), "resolve")

	// Suffix the locator.
	//  This is last so we can use the "--" to terminate acceptance of flags.
	return append(args, "--", locator)
}

/*
	ExpandArgs renders replica groups the way the CLI reads them:
	one argument per group, replicas joined by commas.
*/
func ExpandArgs(inputs [][]string, partition string, opts Options) []string {
	args := append(opts.flags(), "expand")
	if partition != "" {
		args = append(args, "--partition="+partition)
	}
	args = append(args, "--")
	for _, group := range inputs {
		args = append(args, strings.Join(group, ","))
	}
	return args
}
