// Command door-info prints the kernel's metadata for doors installed on
// the filesystem: the server pid, procedure address, cookie slot,
// attribute bits and uniquifier.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/illumos-ipc/go-doors/doors"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: door-info <path>...")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	status := 0
	for _, path := range pflag.Args() {
		if err := printInfo(path); err != nil {
			fmt.Fprintln(os.Stderr, "door-info:", err)
			status = 1
		}
	}
	os.Exit(status)
}

func printInfo(path string) error {
	client, err := doors.Open(path)
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.Info()
	if err != nil {
		return err
	}

	fmt.Printf("%s:\n", path)
	fmt.Printf("  server pid: %d\n", info.Target)
	fmt.Printf("  procedure:  %#x\n", info.Proc)
	fmt.Printf("  cookie:     %#x\n", info.Cookie)
	fmt.Printf("  attributes: %#x %v\n", info.Attributes, doors.Attr(info.Attributes))
	fmt.Printf("  uniquifier: %d\n", info.Uniquifier)
	return nil
}
