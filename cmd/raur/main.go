package main

import "raur/internal/cli"

func main() {
	cli.Execute()
}
