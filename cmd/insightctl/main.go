package main

import "insightchat-backend/internal/cli"

func main() {
	cli.Execute()
}
