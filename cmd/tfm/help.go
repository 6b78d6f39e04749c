package main

import (
	"errors"
	"fmt"
	"io"
)

// Errors
var (
	//lint:ignore ST1005 this error is not used like normal errors
	errUsage = errors.New(`Usage:

	tfm [flags] <command> [arguments]

The commands are:

	login             save App Store Connect API credentials
	config            set default values used by login
	purge             remove testers with no recent sessions
	remove-ungrouped  remove app testers not in any beta group
	version           display the current CLI version
	help              display this help message

The flags are:

	-v      verbose output
	-h      show this message

Use "tfm help <command>" for more information about a command.
Use "tfm help environment" for the environment variables tfm reads.
`)
)

var topics = map[string]string{
	"version": `Usage:

	tfm version

Print the version of tfm.
`,

	"login": `Usage:

	tfm login [--issuer-id=<id>] [--key-id=<id>] [--private-key-path=<path>]
	          [--skip-verification] [--keychain]

Login saves App Store Connect API credentials for use by the other commands.
Values not given as flags are taken from the defaults set with "tfm config".

Unless --skip-verification is given, the credentials are checked with a
request to App Store Connect before they are saved.

With --keychain, the private key is stored in the system keychain instead
of being read from the key file at each use.

Credentials are written to credentials.json in the configuration directory.
`,

	"config": `Usage:

	tfm config

Config prompts for the issuer ID, key ID and private key path that "tfm
login" uses when the matching flags are not given. Press return at a prompt
to keep the current value.

Defaults are written to config.json in the configuration directory. The
file may contain comments and trailing commas.
`,

	"purge": `Usage:

	tfm purge [--app-id=<id>] [--beta-group-id=<id>] [--period=<7d|30d|90d|365d>]
	          [--dry-run] [--interactive | -i]
	          [--output-path=<path>] [--output-format=<text|csv>]
	          [--removal-scope=<testflight|group-only>]

Purge finds the testers of a beta group with no sessions in the given
period (30d by default) and removes them.

Missing identifiers are chosen from menus. With --interactive, every choice
is asked even when given as a flag, and removal must be confirmed.

With --removal-scope=testflight (the default) testers are deleted from
TestFlight entirely. With group-only, they are only removed from the group.

The inactive testers are listed on standard output, or written to
--output-path as text or csv.
`,

	"remove-ungrouped": `Usage:

	tfm remove-ungrouped [--app-id=<id>] [--dry-run] [--interactive | -i]
	                     [--output-path=<path>] [--output-format=<text|csv>]

Remove-ungrouped finds the testers of an app who belong to none of its
beta groups and removes them from the app.

Flags behave as they do for "tfm purge".
`,

	"environment": `Environment variables:

	TFM_CONFIG_DIR

	  Directory holding credentials.json and config.json. The default is
	  $XDG_CONFIG_HOME/testflight-mgmt, or $HOME/.config/testflight-mgmt.

	ASC_BASE_URL

	  Base URL of the App Store Connect API. The default is
	  https://api.appstoreconnect.apple.com.

	ASC_DEBUG

	  If true, log every API request and response.

	TFM_DEBUG

	  If true, log as if -v were given.

	NO_COLOR

	  If set, menus are not colored.
`,
}

func help(w io.Writer, topic string) error {
	switch topic {
	case "":
		return errUsage
	case "help":
		// Asked for explicitly, so not an error.
		_, err := io.WriteString(w, errUsage.Error())
		return err
	}
	s, ok := topics[topic]
	if !ok {
		return fmt.Errorf("unknown help topic %q; Run 'tfm help'", topic)
	}
	_, err := io.WriteString(w, s)
	return err
}
