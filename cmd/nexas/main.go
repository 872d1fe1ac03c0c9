/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/nexas/cmd/nexas/cmd"

func main() {
	cmd.Execute()
}
