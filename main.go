package main

import "github.com/ShayBox/VRC-BAN/cmd"

func main() {
	cmd.Execute()
}
