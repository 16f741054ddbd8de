// Command twopc-sign signs a digest jointly with a second instance of itself.
//
// One instance listens, the other connects:
//
//	twopc-sign -listen 127.0.0.1:7000 -text "hello"
//	twopc-sign -connect 127.0.0.1:7000 -text "hello"
//
// Both print the same signature and joint public key. With -local, both parties
// run in this process instead.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc"
	"golang.org/x/sync/errgroup"
)

type options struct {
	listen, connect, network string
	local                    bool
	message, text            string
	timeout                  time.Duration
	ordering, cipher         string
	out                      string
	logLevel                 string
}

func parse(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("twopc-sign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.listen, "listen", "", "address to accept the peer on")
	fs.StringVar(&o.connect, "connect", "", "address of the listening peer")
	fs.StringVar(&o.network, "network", "tcp", `"tcp" or "unix"`)
	fs.BoolVar(&o.local, "local", false, "run both parties in this process")
	fs.StringVar(&o.message, "message", "", "hex encoded 32 byte digest to sign")
	fs.StringVar(&o.text, "text", "", "text whose SHA-256 digest is signed")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "abort the run after this long")
	fs.StringVar(&o.ordering, "ordering", "scale-free", `digit ordering, "scale-free" or "legacy"`)
	fs.StringVar(&o.cipher, "cipher", "xor", `oblivious transfer cipher, "xor" or "chacha20"`)
	fs.StringVar(&o.out, "out", "", "write the CBOR encoded result to this file")
	fs.StringVar(&o.logLevel, "log-level", "info", "zerolog level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	modes := 0
	for _, set := range []bool{o.listen != "", o.connect != "", o.local} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, errors.New("exactly one of -listen, -connect and -local is required")
	}
	if (o.message == "") == (o.text == "") {
		return nil, errors.New("exactly one of -message and -text is required")
	}
	return &o, nil
}

func (o *options) digest() ([]byte, error) {
	if o.text != "" {
		d := sha256.Sum256([]byte(o.text))
		return d[:], nil
	}
	d, err := hex.DecodeString(o.message)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	if len(d) != sha256.Size {
		return nil, fmt.Errorf("message: expected %d bytes, got %d", sha256.Size, len(d))
	}
	return d, nil
}

func (o *options) signOptions(log zerolog.Logger) ([]twopc.Option, error) {
	ordering, err := twopc.ParseOrdering(o.ordering)
	if err != nil {
		return nil, err
	}
	cipher, err := twopc.CipherByName(o.cipher)
	if err != nil {
		return nil, err
	}
	return []twopc.Option{
		twopc.WithLogger(log),
		twopc.WithTimeout(o.timeout),
		twopc.WithOrdering(ordering),
		twopc.WithCipher(cipher),
	}, nil
}

// dial returns the connection to the peer, waiting for it if listening.
func (o *options) dial(ctx context.Context) (stream.Stream, func(), error) {
	var (
		conn net.Conn
		err  error
	)
	if o.listen != "" {
		var l net.Listener
		l, err = (&net.ListenConfig{}).Listen(ctx, o.network, o.listen)
		if err != nil {
			return nil, nil, err
		}
		defer l.Close()
		stop := context.AfterFunc(ctx, func() { _ = l.Close() })
		defer stop()
		conn, err = l.Accept()
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, o.network, o.connect)
	}
	if err != nil {
		return nil, nil, err
	}
	return stream.NewConn(conn), func() { _ = conn.Close() }, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parse(args, stderr)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	digest, err := o.digest()
	if err != nil {
		return err
	}
	signOpts, err := o.signOptions(log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	var result *twopc.Result
	if o.local {
		result, err = signLocally(ctx, digest, signOpts)
	} else {
		var (
			conn   stream.Stream
			hangUp func()
		)
		conn, hangUp, err = o.dial(ctx)
		if err != nil {
			return err
		}
		defer hangUp()
		id := uuid.NewString()
		log.Info().Str("run", id).Msg("connected")
		result, err = twopc.Sign(ctx, conn, digest, append(signOpts, twopc.WithRunID(id))...)
	}
	if err != nil {
		return err
	}
	return report(o, result, stdout)
}

func signLocally(ctx context.Context, digest []byte, opts []twopc.Option) (*twopc.Result, error) {
	a, b := stream.Pipe()
	results := make([]*twopc.Result, 2)
	eg, ctx := errgroup.WithContext(ctx)
	for i, conn := range []stream.Stream{a, b} {
		i, conn := i, conn
		eg.Go(func() error {
			r, err := twopc.Sign(ctx, conn, digest, append(opts, twopc.WithRunID(fmt.Sprintf("local-%d", i)))...)
			results[i] = r
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results[0], nil
}

func report(o *options, result *twopc.Result, stdout io.Writer) error {
	key, err := result.PublicKey.MarshalBinary()
	if err != nil {
		return err
	}
	sig, err := result.Signature.MarshalBinary()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "role:       %s\n", result.Role)
	fmt.Fprintf(stdout, "public key: %x\n", key)
	fmt.Fprintf(stdout, "signature:  %x\n", sig)
	fmt.Fprintf(stdout, "der:        %x\n", result.Signature.DER())
	fmt.Fprintf(stdout, "session:    %x\n", result.SessionID)

	if o.out == "" {
		return nil
	}
	data, err := result.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(o.out, data, 0o644)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "twopc-sign:", err)
		}
		os.Exit(1)
	}
}
