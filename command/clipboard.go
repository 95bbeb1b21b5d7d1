package command

import (
	"encoding/base64"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/gen2brain/beeep"
	"github.com/tigerwill90/derive/internal/enclave"
	"io"
)

// copyOSC52 asks the terminal to put key in the system clipboard.
func copyOSC52(w io.Writer, key *enclave.Enclave) error {
	p, destroy := key.Open()
	defer destroy()

	const prefix = "\x1b]52;c;"
	n := base64.StdEncoding.EncodedLen(len(p))
	seq := make([]byte, len(prefix)+n+1)
	defer memguard.WipeBytes(seq)
	copy(seq, prefix)
	base64.StdEncoding.Encode(seq[len(prefix):], p)
	seq[len(seq)-1] = '\a'

	_, err := w.Write(seq)
	return err
}

func (e *env) notifyf(title, format string, a ...interface{}) {
	if !e.notify {
		return
	}
	if err := beeep.Notify(title, fmt.Sprintf(format, a...), ""); err != nil {
		e.logger.Warn("desktop notification failed", "error", err)
	}
}
