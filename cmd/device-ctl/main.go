package main

import "github.com/oshokin/device-core/cmd/device-ctl/cmd"

func main() {
	cmd.Execute()
}
