// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Command navtool encodes and decodes secure navigation URLs offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "navtool",
		Usage: "Inspect secure navigation URLs",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Issue a secure URL for a path in a throwaway store",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User id the code is bound to"},
					&cli.StringFlag{Name: "user-agent", Value: "navtool", Usage: "Browser user agent"},
					&cli.StringFlag{Name: "lang", Value: "en-US", Usage: "Browser language"},
					&cli.StringFlag{Name: "hints", Usage: `Client hints as "<w>x<h>|<tz>|<canvas>"`},
				},
				Action: encode,
			},
			{
				Name:      "decode",
				Usage:     "Split a secure URL into path, code and error code",
				ArgsUsage: "<url>",
				Action:    decode,
			},
		},
	}
}

func encode(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" || path[0] != '/' {
		return errors.New("encode needs an absolute path, e.g. /article/42")
	}

	env := secureroute.Environment{
		UserAgent: cmd.String("user-agent"),
		Language:  cmd.String("lang"),
	}
	if hints := cmd.String("hints"); hints != "" {
		env.ApplyClientHints(hints)
	}
	ctx = secureroute.WithEnvironment(ctx, env)

	t := secureroute.NewTransformer(secureroute.NewStore(0), 0)
	url := t.ToSecurePath(ctx, path, cmd.String("user"), true)

	w := cmd.Root().Writer
	_, err := fmt.Fprintf(w, "url:         %s\nfingerprint: %s\n", url, env.Fingerprint())
	return err
}

func decode(_ context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	loc := secureroute.FromSecurePath(raw)
	if loc == nil {
		return fmt.Errorf("not a secure URL: %q", raw)
	}

	_, err := fmt.Fprintf(cmd.Root().Writer, "path:        %s\ncode:        %s\nerror code:  %s\n",
		loc.Path, loc.Code, loc.ErrorCode)
	return err
}
