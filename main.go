/*
	Copyright 2025 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/laptime-logger/cmd"

func main() {
	cmd.Execute()
}
