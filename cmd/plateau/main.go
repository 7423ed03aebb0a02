package main

import "github.com/tsawler/go-plateau/cmd/plateau/cmd"

func main() {
	cmd.Execute()
}
