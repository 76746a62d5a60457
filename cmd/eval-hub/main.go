package main

import "github.com/eval-hub/eval-hub/internal/cli"

func main() {
	cli.Execute()
}
