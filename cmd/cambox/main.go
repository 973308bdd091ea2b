// ABOUTME: Entrypoint for the cambox binary
// ABOUTME: All behavior lives in the commands package
package main

import "github.com/cambox-project/cambox-go/internal/commands"

func main() {
	commands.Execute()
}
