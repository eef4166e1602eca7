/*
	Package execclient drives a courier binary in a child process, for
	callers that would rather not link the resolver and expander in.

	Results come back over the CLI's json output; the child's exit code is
	checked against the error category it reported.
*/
package execclient

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

// Binary is the courier executable, looked up on $PATH unless it's a path.
var Binary = "courier"

/*
	Resolve runs `courier resolve` on the locator.

	May return errors of category:

	  - whatever the child reported (see locator.Resolver.Resolve)
	  - `courier.ErrRPCBreakdown` -- if the child couldn't be run or spoke nonsense
*/
func Resolve(ctx context.Context, locator string, opts Options) (string, error) {
	value, err := run(ctx, ResolveArgs(locator, opts))
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", Errorf(courier.ErrRPCBreakdown, "fork courier: resolve answered with %T, not a string", value)
	}
	return s, nil
}

/*
	Expand runs `courier expand` on the input groups and returns url groups.

	May return errors of category:

	  - whatever the child reported (see dirindex.Expander.ExpandAll)
	  - `courier.ErrRPCBreakdown` -- if the child couldn't be run or spoke nonsense
*/
func Expand(ctx context.Context, inputs [][]string, partition string, opts Options) ([][]string, error) {
	value, err := run(ctx, ExpandArgs(inputs, partition, opts))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	outer, ok := value.([]interface{})
	if !ok {
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: expand answered with %T, not a list", value)
	}
	groups := make([][]string, len(outer))
	for i, g := range outer {
		inner, ok := g.([]interface{})
		if !ok {
			return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: expand group %d is %T, not a list", i, g)
		}
		groups[i] = make([]string, len(inner))
		for j, u := range inner {
			s, ok := u.(string)
			if !ok {
				return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: expand group %d has a %T, not a url", i, u)
			}
			groups[i][j] = s
		}
	}
	return groups, nil
}

// internal implementation of process handling shared by every command.
func run(ctx context.Context, args []string) (interface{}, error) {
	// Spawn process.
	cmd := exec.Command(Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: failed to start: %s", err)
	}
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	if err = cmd.Start(); err != nil {
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: failed to start: %s", err)
	}

	// Set up reaction to ctx.done: send a sig to the child proc.
	//  The exited channel releases this goroutine when the child ends on its own.
	exited := make(chan struct{})
	defer close(exited)
	go func() {
		select {
		case <-ctx.Done():
			cmd.Process.Signal(os.Interrupt)
			select {
			case <-exited:
			case <-time.After(100 * time.Millisecond):
				cmd.Process.Signal(os.Kill)
			}
		case <-exited:
		}
	}()

	// Read the one result message.
	//  An EOF means the child died before answering; the error from Wait
	//  (with the stderr capture) will be more informative, so carry on to it.
	var result courier.Event_Result
	gotResult := false
	unmarshaller := refmt.NewUnmarshallerAtlased(json.DecodeOptions{}, stdout, courier.Atlas)
	switch err := unmarshaller.Unmarshal(&result); err {
	case nil:
		gotResult = true
	case io.EOF:
	default:
		io.Copy(io.Discard, stdout)
		cmd.Wait()
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: API parse error: %s", err)
	}
	io.Copy(io.Discard, stdout)

	// Wait for process complete.
	//  The exit code SHOULD be redundant with the result we SHOULD have already
	//  deserialized... but we check that it all matches up.
	code, err := waitFor(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, Errorf(courier.ErrCancelled, "fork courier: %s", ctx.Err())
		}
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: wait error: %s (stderr: %q)", err, stderrBuf.String())
	}
	if code == 0 {
		// If the exit code was success, we'd sure better have gotten the rightly formatted result message.
		if !gotResult {
			return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: exited zero, but no clear result?! (stderr: %q)", stderrBuf.String())
		}
		if result.Error != nil {
			return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: exited zero, but result had error, category=%s: %s", result.Error.Category, result.Error.Message)
		}
		return result.Value, nil // This is the happy path return!
	}
	// For non-zero exits: Check match for sanity.
	exitCategory := courier.CategoryForExitCode(courier.ExitCode(code))
	if !gotResult || result.Error == nil {
		return nil, Errorf(exitCategory, "fork courier: exit code %d but no message available (stderr: %q)", code, stderrBuf.String())
	}
	if result.Error.Category != exitCategory {
		return nil, Errorf(courier.ErrRPCBreakdown, "fork courier: exit code %d disagrees with reported category %s", code, result.Error.Category)
	}
	return nil, ErrorDetailed(result.Error.Category, result.Error.Message, result.Error.Details) // This is the clean error path!
}
