package main

import "github.com/maxvaer/sqlprobe/cmd"

func main() {
	cmd.Execute()
}
