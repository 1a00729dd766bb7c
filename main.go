package main

import "github.com/KaramelBytes/batcov/cmd"

func main() {
	cmd.Execute()
}
