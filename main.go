package main

import "github.com/kris-hansen/tagup/cmd"

func main() {
	cmd.Execute()
}
