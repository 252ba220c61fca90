package listener

import (
	"io"
)

// terminalConn gives the console plain \n line endings whatever the client sends, and
// sends \r\n back. Telnet clients end lines with \r\n or \r\x00, ssh clients without a
// pty with \n, and some terminals with a bare \r. A \r\n split across two reads is
// still one line ending.
type terminalConn struct {
	rw     io.ReadWriter
	lastCR bool
	wroteR bool
}

func newTerminalConn(rw io.ReadWriter) *terminalConn {
	return &terminalConn{rw: rw}
}

func (c *terminalConn) Read(p []byte) (int, error) {
	for {
		n, err := c.rw.Read(p)
		out := 0
		for _, b := range p[:n] {
			switch {
			case b == '\r':
				p[out] = '\n'
				out++
				c.lastCR = true
				continue
			case b == '\n' && c.lastCR:
			case b == 0:
			default:
				p[out] = b
				out++
			}
			c.lastCR = false
		}
		// A read that held nothing but the tail of a line ending is not end of input.
		if out > 0 || err != nil || n == 0 {
			return out, err
		}
	}
}

func (c *terminalConn) Write(p []byte) (int, error) {
	buf := make([]byte, 0, len(p)+len(p)/8)
	for _, b := range p {
		if b == '\n' && !c.wroteR {
			buf = append(buf, '\r')
		}
		buf = append(buf, b)
		c.wroteR = b == '\r'
	}
	if _, err := c.rw.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
