package main

import "github.com/guardianbridge/guardianbridge/cmd"

func main() {
	cmd.Execute()
}
