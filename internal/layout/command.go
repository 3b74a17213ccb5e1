package layout

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Runner executes the command bound to a key.
type Runner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// Result captures what a command wrote.
type Result struct {
	Stdout string
	Stderr string
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func (r Result) PrimaryOutput() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// ShellRunner runs commands through a shell.
type ShellRunner struct {
	// Shell overrides the detected shell. It is invoked with -c.
	Shell string
	// Dir is the working directory.
	Dir string
}

// Run implements Runner.
func (s ShellRunner) Run(ctx context.Context, command string) (Result, error) {
	shell, args, err := determineShell(s.Shell)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, shell, append(args, command)...)
	cmd.Dir = s.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		if out := res.PrimaryOutput(); out != "" {
			err = fmt.Errorf("%w: %s", err, out)
		}
		return res, err
	}
	return res, nil
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}
