// arm CLI - query the models of an arm project file
package main

import "github.com/armapper/arm/cli"

func main() {
	cli.Execute()
}
