package main

import "github.com/findy-network/findy-keri-agent/cmd"

func main() {
	cmd.Execute()
}
