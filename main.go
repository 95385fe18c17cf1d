package main

import (
	"signcast/cmd"
)

func main() {
	cmd.Execute()
}
