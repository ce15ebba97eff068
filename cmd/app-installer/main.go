package main

import "app-installer/internal/cli"

func main() {
	cli.Execute()
}
