// Command door-call invokes a door from the shell. The payload comes from
// --data or from stdin, and the response is written to stdout.
//
//	echo -n 'hello' | door-call /var/run/capitalize.door
//	door-call --data 'hello' --wait 5s /var/run/capitalize.door
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cenkalti/backoff"
	"github.com/spf13/pflag"

	"github.com/illumos-ipc/go-doors/doors"
)

var (
	data  = pflag.StringP("data", "d", "", "payload to send (default: read from stdin)")
	wait  = pflag.DurationP("wait", "w", 0, "wait up to this long for the door to be installed")
	retry = pflag.BoolP("retry", "r", false, "retry interrupted calls with exponential backoff")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: door-call [flags] <path>")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	if err := run(pflag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "door-call:", err)
		os.Exit(1)
	}
}

func run(path string) error {
	payload := []byte(*data)
	if !pflag.CommandLine.Changed("data") {
		var err error
		if payload, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	var (
		client *doors.Client
		err    error
	)
	if *wait > 0 {
		client, err = doors.Await(path, *wait)
	} else {
		client, err = doors.Open(path)
	}
	if err != nil {
		return err
	}
	defer client.Close()

	var res *doors.Result
	if *retry {
		res, err = client.CallWithRetry(backoff.NewExponentialBackOff(), payload)
	} else {
		res, err = client.Call(payload)
	}
	if err != nil {
		return err
	}

	for _, d := range res.Descriptors {
		fmt.Fprintf(os.Stderr, "door-call: received descriptor %d (closing)\n", d.Fd)
		d.File().Close()
	}
	if _, err := os.Stdout.Write(res.Data); err != nil {
		return err
	}
	return nil
}
