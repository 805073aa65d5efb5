package main

import "github.com/esm-dev/ember-resolver/cli"

func main() {
	cli.Run()
}
