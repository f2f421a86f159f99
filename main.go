// Schemadoc - documentation generator for Schema.org vocabularies.
//
// Schemadoc merges a base vocabulary with custom extensions, renders every
// type and property as a cross-linked page, and indexes the result for
// search and MCP clients.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/schemadoc-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
