package main

import "github.com/parallelchain-io/pchain-client-cli/cmd"

func main() {
	cmd.Execute()
}
