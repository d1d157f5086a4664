// Command gate-server runs the gate controller daemon.
package main

import "github.com/oshokin/gate-controller/cmd/gate-server/cmd"

func main() {
	cmd.Execute()
}
