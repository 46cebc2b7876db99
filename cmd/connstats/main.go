package main

import "github.com/coder/connstats/cli"

func main() {
	var rootCmd cli.RootCmd
	rootCmd.RunMain()
}
