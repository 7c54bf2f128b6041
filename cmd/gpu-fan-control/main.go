package main

import "github.com/oshokin/gpu-fan-control/cmd/gpu-fan-control/cmd"

func main() {
	cmd.Execute()
}
