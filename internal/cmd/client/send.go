package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewSendCommand constructs the `send` command: connect, send one record and
// print the server's echo.
func NewSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [record]",
		Short: "Send a record and print the accumulated log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			file, _ := cmd.Flags().GetString("file")
			noNewline, _ := cmd.Flags().GetBool("no-newline")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			var payload []byte
			switch {
			case len(args) == 1:
				payload = []byte(args[0])
			case file == "-":
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = b
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				payload = b
			default:
				return fmt.Errorf("nothing to send: pass a record or --file")
			}
			if !noNewline && !strings.HasSuffix(string(payload), "\n") {
				payload = append(payload, '\n')
			}

			out, err := Send(addr, payload, timeout)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().String("addr", serverAddrFromEnv(), "Server address (env AESD_SERVER)")
	cmd.Flags().String("file", "", "Read the record from a file (- for stdin)")
	cmd.Flags().Bool("no-newline", false, "Do not append a trailing newline")
	cmd.Flags().Duration("timeout", 10*time.Second, "Overall deadline")
	return cmd
}

// Send writes payload to addr, half-closes the connection and returns
// everything the server sends back before closing.
func Send(addr string, payload []byte, timeout time.Duration) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	// Half-close so a server that keeps connections open still ends the
	// exchange after answering.
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("recv: %w", err)
	}
	return out, nil
}
