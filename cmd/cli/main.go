package main

import (
	"arkwarden/internal/cli/cmd"
	"arkwarden/internal/config"
)

func main() {
	port := config.GetPort()
	cmd.Execute(port)
}
