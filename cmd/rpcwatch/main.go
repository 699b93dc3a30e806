package main

import "github.com/vietddude/rpcwatch/internal/cli"

func main() {
	cli.Execute()
}
