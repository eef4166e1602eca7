package execclient

import (
	"os/exec"
	"syscall"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

/*
	Wait for a child courier and return its exit code, for run to check
	against `courier.CategoryForExitCode`.

	Only a normal exit yields a code courier's exit table can explain.
	A child killed by a signal (ours on ctx cancel, or anyone else's) never
	wrote its result, so that's reported as a breakdown, with the shell's
	128+signal code alongside for the message.
*/
func waitFor(cmd *exec.Cmd) (int, error) {
	err := cmd.Wait()
	if err == nil {
		return int(courier.ExitSuccess), nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return -1, Errorf(courier.ErrRPCBreakdown, "fork courier: wait failed: %s", err)
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	switch {
	case !ok:
		// Not a unix wait status; the portable accessor still knows normal exits.
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return -1, Errorf(courier.ErrRPCBreakdown, "fork courier: unreadable process state %T", exitErr.Sys())
	case status.Exited():
		return status.ExitStatus(), nil
	case status.Signaled():
		return 128 + int(status.Signal()), Errorf(courier.ErrRPCBreakdown, "fork courier: child killed by %s before answering", status.Signal())
	default:
		return -1, Errorf(courier.ErrRPCBreakdown, "fork courier: child neither exited nor was killed (%#v)", status)
	}
}
