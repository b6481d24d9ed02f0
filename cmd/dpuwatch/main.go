package main

import "github.com/dpuwatch/dpuwatch/internal/cli"

func main() {
	cli.Execute()
}
