/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "draftflow/cmd"

func main() {
	cmd.Execute()
}
