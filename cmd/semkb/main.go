package main

import "semkb/internal/cli"

func main() {
	cli.Execute()
}
