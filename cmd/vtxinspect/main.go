package main

import "github.com/ironlatch/vtxcore/cmd/vtxinspect/cmd"

func main() {
	cmd.Execute()
}
