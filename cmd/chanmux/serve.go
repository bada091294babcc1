package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"io"
	"math/big"

	"github.com/sshwire/chanmux/mux"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("serve: listen address required")
	}

	l, err := listen(fs.Arg(0))
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Info().Str("addr", fs.Arg(0)).Msg("listening")

	for {
		sess, err := l.Accept()
		if err != nil {
			return err
		}
		go serve(sess)
	}
}

// serve echoes every session channel's data back to its opener.
func serve(sess *mux.Session) {
	defer sess.Close()
	sess.HandleChannelType("session", func(s *mux.Session, _ string) mux.Channel {
		return s.NewSessionChannel()
	})
	go func() {
		for {
			ch, err := sess.Accept()
			if err != nil {
				return
			}
			go func(ch mux.Channel) {
				io.Copy(ch, ch)
				ch.Close()
			}(ch)
		}
	}()
	sess.Wait()
}

func generateTLSConfig() *tls.Config {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		panic(err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		panic(err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
	}
}
