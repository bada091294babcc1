package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sshwire/chanmux/mux"
)

type envFlags []string

func (e *envFlags) String() string { return strings.Join(*e, ",") }

func (e *envFlags) Set(v string) error {
	*e = append(*e, v)
	return nil
}

func runExec(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var envs envFlags
	fs.Var(&envs, "e", "environment variable to propagate (KEY=VALUE, repeatable)")
	redirect := fs.Bool("redirect-stderr", false, "merge the error stream into stdout")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("exec: endpoint address required")
	}

	sess, err := dial(fs.Arg(0))
	if err != nil {
		return err
	}
	defer sess.Close()

	ch := sess.NewSessionChannel(
		mux.WithInput(os.Stdin),
		mux.WithRedirectErrorStream(*redirect),
	)
	for _, kv := range envs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("exec: bad env entry %q", kv)
		}
		ch.SetEnv(k, v)
	}

	if err := ch.Open(context.Background()); err != nil {
		return err
	}

	if !*redirect {
		go io.Copy(os.Stderr, ch.Stderr())
	}
	_, cperr := io.Copy(os.Stdout, ch.Stdout())
	cerr := ch.Close()
	if cperr != nil {
		return cperr
	}
	return cerr
}
