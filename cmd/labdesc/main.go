package main

import "github.com/ethpandaops/labdesc/cmd/labdesc/cmd"

func main() {
	cmd.Execute()
}
