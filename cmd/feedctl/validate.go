package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a feed file the way the server does before swapping it in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, raw, err := readFeed(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d listings, version %s, sha256 %s\n",
				len(feed.Listings), feed.Version, cryptoutil.SHA256Hex(raw))
			return nil
		},
	}
}

// readFeed decodes and validates a feed file, returning the exact bytes
// that get hashed and published.
func readFeed(path string) (listings.Feed, []byte, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return listings.Feed{}, nil, xerrors.Wrapf(err, "open %s", path)
		}
		defer fh.Close()
		r = fh
	}
	feed, raw, err := listings.DecodeFeed(r)
	if err != nil {
		return listings.Feed{}, nil, err
	}
	if err := listings.ValidateFeed(feed, listings.DefaultValidationOptions()); err != nil {
		return listings.Feed{}, nil, xerrors.Wrapf(err, "%s", path)
	}
	return feed, raw, nil
}
