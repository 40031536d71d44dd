package main

import "github.com/mirrorwell/pagestore/internal/cli"

func main() {
	cli.Execute()
}
