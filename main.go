package main

import "github.com/rdjoudi/mybak/cmd"

func main() {
	cmd.Execute()
}
