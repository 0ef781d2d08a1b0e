package main

import "github.com/powerstream/commandgate/internal/cli"

func main() {
	cli.Execute()
}
