package main

import "github.com/yoockh/mockinterview/internal/cli"

func main() {
	cli.Execute()
}
