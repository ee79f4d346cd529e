package main

import "github.com/linesmerrill/clinic-chat-api/cmd/chatcli/cmd"

func main() {
	cmd.Execute()
}
