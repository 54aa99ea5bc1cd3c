package main

import "github.com/RyanBlaney/sonido-genre/cmd"

func main() {
	cmd.Execute()
}
