package main

import (
	"context"
	"errors"
	"flag"

	"github.com/sshwire/chanmux/mux"
)

func runProxy(args []string) error {
	fs := flag.NewFlagSet("proxy", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("proxy: listen and upstream addresses required")
	}

	l, err := listen(fs.Arg(0))
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Info().Str("addr", fs.Arg(0)).Str("upstream", fs.Arg(1)).Msg("proxying")

	for {
		sess, err := l.Accept()
		if err != nil {
			return err
		}
		go func(src *mux.Session) {
			defer src.Close()
			dst, err := dial(fs.Arg(1))
			if err != nil {
				logger.Error().Err(err).Msg("dialing upstream")
				return
			}
			defer dst.Close()
			src.HandleChannelType("*", func(s *mux.Session, chanType string) mux.Channel {
				return s.NewChannel(chanType)
			})
			if err := mux.ProxySessions(context.Background(), src, dst); err != nil {
				logger.Error().Err(err).Msg("proxy session failed")
			}
		}(sess)
	}
}
