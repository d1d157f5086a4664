// Command gate-ctl sends commands to a running gate controller.
package main

import "github.com/oshokin/gate-controller/cmd/gate-ctl/cmd"

func main() {
	cmd.Execute()
}
