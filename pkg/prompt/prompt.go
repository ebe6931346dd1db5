package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Confirmer asks a yes/no question and reports the answer.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

type ConfirmFunc func(question string) (bool, error)

func (f ConfirmFunc) Confirm(question string) (bool, error) {
	return f(question)
}

type ReaderConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewReaderConfirmer(in io.Reader, out io.Writer) *ReaderConfirmer {
	return &ReaderConfirmer{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm writes the question followed by "(y/n): " and reads a single line.
// End of input counts as a refusal.
func (c *ReaderConfirmer) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(c.out, "%s (y/n): ", question); err != nil {
		return false, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "failed to read answer")
	}
	return IsAffirmative(line), nil
}

func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
