/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/quickkart/authserver/cmd"

func main() {
	cmd.Execute()
}
