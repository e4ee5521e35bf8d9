// Command tornwampd runs a standalone WAMP router.
package main

import "github.com/rexlunae/tornwamp/cmd/tornwampd/cmd"

func main() {
	cmd.Execute()
}
