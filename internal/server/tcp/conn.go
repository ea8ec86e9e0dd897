package tcpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// handle runs one connection through Receiving, Echoing and Closing. The
// connection is closed on every path.
func (s *Server) handle(conn net.Conn, peer string) error {
	log := s.logger.With(logpkg.Str(logpkg.RemoteKey, peer))
	log.Info("Accepted connection from " + peer)
	defer func() {
		_ = conn.Close()
		log.Info("Closed connection from " + peer)
	}()

	buf := make([]byte, s.opts.RecvBufferBytes)
	for records := 0; s.opts.RecordsPerConn < 0 || records < s.opts.RecordsPerConn; records++ {
		final, err := s.receive(conn, buf)
		if err != nil {
			return s.fail(log, "recv", err)
		}
		if final == nil {
			// Peer closed or went idle; any partial record stays in the log.
			return nil
		}
		if err := s.echo(conn, final); err != nil {
			return s.fail(log, "echo", err)
		}
	}
	return nil
}

// receive reads until a chunk containing a newline arrives and returns that
// chunk without appending it. Earlier chunks are appended as they arrive. A
// nil chunk with nil error means the peer closed.
func (s *Server) receive(conn net.Conn, buf []byte) ([]byte, error) {
	pending := false
	for {
		if s.opts.IdleTimeout > 0 {
			var deadline time.Time
			if !pending {
				deadline = time.Now().Add(s.opts.IdleTimeout)
			}
			_ = conn.SetReadDeadline(deadline)
		}
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if bytes.IndexByte(chunk, '\n') >= 0 {
				return chunk, nil
			}
			if aerr := s.store.Append(chunk); aerr != nil {
				return nil, aerr
			}
			pending = true
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil, nil
		case !pending && isTimeout(err):
			s.logger.Debug("idle timeout", logpkg.Duration("idle", s.opts.IdleTimeout))
			return nil, nil
		default:
			return nil, err
		}
	}
}

// echo appends the final chunk and writes the whole log back.
func (s *Server) echo(conn net.Conn, final []byte) error {
	var (
		snapshot []byte
		err      error
	)
	if s.opts.EchoMode == EchoSplit {
		if err = s.store.Append(final); err != nil {
			return err
		}
		snapshot, err = s.store.ReadAll()
	} else {
		snapshot, err = s.store.AppendAndRead(final)
	}
	if err != nil {
		return err
	}
	n, err := conn.Write(snapshot)
	if err != nil {
		return err
	}
	if n != len(snapshot) {
		return io.ErrShortWrite
	}
	return nil
}

func (s *Server) fail(log logpkg.Logger, op string, err error) error {
	log.Error("connection failed", logpkg.Op(op), logpkg.Err(err))
	return fmt.Errorf("%s: %w", op, err)
}
