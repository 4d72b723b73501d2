package main

import (
	"watchtrail/cmd"
)

func main() {
	cmd.Execute()
}
