// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the SmartEco CLI application.
// It tracks the carbon footprint of your trips through the SmartEco API.
package main

import (
	"smarteco/cli/cmd"
)

// main is the entry point for the SmartEco CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
