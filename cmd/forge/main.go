package main

import "github.com/forgepkg/forge/cmd/forge/internal"

func main() {
	internal.Execute()
}
