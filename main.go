package main

import "github.com/frahmantamala/dot-spend/cmd"

func main() {
	cmd.Execute()
}
