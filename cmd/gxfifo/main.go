// Package main is the entry point of the gxfifo command line tool.
package main

import "github.com/sarchlab/gxfifo/cmd/gxfifo/cmd"

func main() {
	cmd.Execute()
}
