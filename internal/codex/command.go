package codex

import (
	"io"
	"os"
	"os/exec"
)

// command abstracts the spawned agent process so tests can script one.
type command interface {
	Start() error
	Wait() error
	StdoutPipe() (io.ReadCloser, error)
	StdinPipe() (io.WriteCloser, error)
	SetStderr(writer io.Writer)
	Process() process
}

// process is the signal surface of a started command.
type process interface {
	Signal(signal os.Signal) error
	Kill() error
}

// execCommand adapts exec.Cmd to the command interface.
type execCommand struct {
	cmd *exec.Cmd
}

// newExecCommand builds a real child command.
func newExecCommand(name string, args ...string) command {
	return &execCommand{cmd: exec.Command(name, args...)}
}

func (c *execCommand) Start() error {
	return c.cmd.Start()
}

func (c *execCommand) Wait() error {
	return c.cmd.Wait()
}

func (c *execCommand) StdoutPipe() (io.ReadCloser, error) {
	return c.cmd.StdoutPipe()
}

func (c *execCommand) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

func (c *execCommand) SetStderr(writer io.Writer) {
	c.cmd.Stderr = writer
}

func (c *execCommand) Process() process {
	if c.cmd.Process == nil {
		return nil
	}
	return &execProcess{handle: c.cmd.Process}
}

// execProcess adapts os.Process to the process interface.
type execProcess struct {
	handle *os.Process
}

func (p *execProcess) Signal(signal os.Signal) error {
	return p.handle.Signal(signal)
}

func (p *execProcess) Kill() error {
	return p.handle.Kill()
}
