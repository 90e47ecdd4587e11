package main

import "github.com/oshokin/device-core/cmd/device-core/cmd"

func main() {
	cmd.Execute()
}
