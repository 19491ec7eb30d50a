package main

import "github.com/epirun/epirun/cmd"

func main() {
	cmd.Execute()
}
