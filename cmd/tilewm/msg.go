package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/1broseidon/tilewm/internal/ipc"
)

func newMsgCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "msg [command...]",
		Short: "Send commands to the running window manager",
		Long: `Send one command, for example:

  tilewm msg window focus next
  tilewm msg workspace switch 2

Without arguments, commands are read one per line from stdin. When stdin is
a terminal an interactive prompt is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(v)
			if len(args) > 0 {
				return sendOne(client, strings.Join(args, " "), cmd.OutOrStdout())
			}
			session, err := client.Dial()
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			defer session.Close()

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			failed := sendLines(session, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), interactive)
			if failed > 0 && !interactive {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func sendOne(client *ipc.Client, line string, out io.Writer) error {
	reply, err := client.Send(line)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	if err := reply.Err(); err != nil {
		return &exitError{code: 1, err: err}
	}
	if reply.Payload != "" {
		fmt.Fprintln(out, reply.Payload)
	}
	return nil
}

// lineSender is the part of an ipc.Session used by sendLines.
type lineSender interface {
	Send(line string) (ipc.Reply, error)
}

// sendLines forwards every non-blank, non-comment line from in and prints
// the replies. It returns how many commands failed. A connection error
// stops the loop.
func sendLines(s lineSender, in io.Reader, out, errOut io.Writer, prompt bool) int {
	scanner := bufio.NewScanner(in)
	failed := 0
	for {
		if prompt {
			fmt.Fprint(out, "tilewm> ")
		}
		if !scanner.Scan() {
			if prompt {
				fmt.Fprintln(out)
			}
			return failed
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if prompt && (line == "quit" || line == "exit") {
			return failed
		}
		reply, err := s.Send(line)
		if err != nil {
			fmt.Fprintln(errOut, "tilewm:", err)
			return failed + 1
		}
		if err := reply.Err(); err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", line, err)
			failed++
			continue
		}
		if reply.Payload != "" {
			fmt.Fprintln(out, reply.Payload)
		} else if prompt {
			fmt.Fprintln(out, "ok")
		}
	}
}
