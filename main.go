package main

import "github.com/dmorgan81/imagine/cmd"

func main() {
	cmd.Execute()
}
