package main

import "github.com/trn-tools/trn-cli/cmd"

func main() {
	cmd.Execute()
}
