package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/valutatrade"
	"github.com/google/subcommands"
	"golang.org/x/term"
)

// readPassword returns the password given by flag, or prompts for it.
//
// On a terminal the password is read without echo, otherwise it is the next
// line of the input.
func readPassword(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if isTerminal(os.Stdin) {
		fmt.Fprint(stderr, prompt)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(b), nil
	}
	line, err := input.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.New("no password given, use -password")
	}
	return line, nil
}

type registerCmd struct {
	username string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a user account" }
func (*registerCmd) Usage() string {
	return `vth register -username <name> [-password <password>]

  Creates a user with an empty portfolio. The password is prompted for when
  not given.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "Name of the new user.")
	f.StringVar(&c.password, "password", "", "Password of the new user.")
}

func (c *registerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username := c.username
	if username == "" && f.NArg() == 1 {
		username = f.Arg(0)
	}
	if username == "" {
		return usage(f, "Error: -username is required")
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	password, err := readPassword(c.password, "Password: ")
	if err != nil {
		return fail(err)
	}
	u, err := a.auth.Register(username, password)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "User %q registered (id=%d). Log in with: vth login -username %s\n", u.Username, u.ID, u.Username)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in as a user" }
func (*loginCmd) Usage() string {
	return `vth login -username <name> [-password <password>]

  Opens a session shared by the following commands until logout.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "Name of the user.")
	f.StringVar(&c.password, "password", "", "Password of the user.")
}

func (c *loginCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username := c.username
	if username == "" && f.NArg() == 1 {
		username = f.Arg(0)
	}
	if username == "" {
		return usage(f, "Error: -username is required")
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	password, err := readPassword(c.password, "Password: ")
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Login(username, password)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Logged in as %q (id=%d).\n", sess.Username, sess.UserID)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "close the current session" }
func (*logoutCmd) Usage() string {
	return `vth logout
`
}

func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Current()
	if err != nil {
		return fail(err)
	}
	if err := a.auth.Logout(); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Logged out %q.\n", sess.Username)
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "display the current user" }
func (*whoamiCmd) Usage() string {
	return `vth whoami
`
}

func (*whoamiCmd) SetFlags(*flag.FlagSet) {}

func (*whoamiCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Current()
	if errors.Is(err, valutatrade.ErrNotLoggedIn) {
		fmt.Fprintln(stdout, "Not logged in.")
		return subcommands.ExitSuccess
	}
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Logged in as %q (id=%d).\n", sess.Username, sess.UserID)
	return subcommands.ExitSuccess
}

type changePasswordCmd struct {
	old, next string
}

func (*changePasswordCmd) Name() string     { return "change-password" }
func (*changePasswordCmd) Synopsis() string { return "change the password of the current user" }
func (*changePasswordCmd) Usage() string {
	return `vth change-password [-old <password>] [-new <password>]

  Passwords not given are prompted for.
`
}

func (c *changePasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.old, "old", "", "Current password.")
	f.StringVar(&c.next, "new", "", "New password.")
}

func (c *changePasswordCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Current()
	if err != nil {
		return fail(err)
	}
	old, err := readPassword(c.old, "Current password: ")
	if err != nil {
		return fail(err)
	}
	pw, err := readPassword(c.next, "New password: ")
	if err != nil {
		return fail(err)
	}
	if err := a.auth.ChangePassword(sess, old, pw); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Password of %q changed.\n", sess.Username)
	return subcommands.ExitSuccess
}
