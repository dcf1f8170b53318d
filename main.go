package main

import "mangamark/cmd"

func main() {
	cmd.Execute()
}
