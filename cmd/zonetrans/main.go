// Command zonetrans computes directional correspondence factors between
// two zoning systems.
package main

import "github.com/zonetrans/engine/internal/cmd"

func main() {
	cmd.Execute()
}
