package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// TerminalOperator asks a human at the controlling terminal to resolve
// checkpoints. Confirm blocks on a line of input; cancellation of the
// context unblocks it.
type TerminalOperator struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalOperator wires the operator to stdin/stderr.
func NewTerminalOperator() *TerminalOperator {
	return &TerminalOperator{In: os.Stdin, Out: os.Stderr}
}

func (t *TerminalOperator) Confirm(ctx context.Context, prompt string) error {
	fmt.Fprintf(t.Out, "\n%s\nPress Enter when done... ", prompt)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(t.In).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

// DeclineOperator refuses every checkpoint. Use it in headless
// deployments where no human can intervene; affected searches degrade
// instead of hanging.
type DeclineOperator struct{}

func (DeclineOperator) Confirm(context.Context, string) error {
	return errors.New("no operator available")
}
