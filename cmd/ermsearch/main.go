package main

import "github.com/deicod/ermsearch/cli"

func main() {
	cli.Execute()
}
