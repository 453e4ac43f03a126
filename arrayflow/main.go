// Command arrayflow runs and inspects multidimensional dataflow graphs.
package main

import "github.com/sarchlab/arrayflow/arrayflow/cmd"

func main() {
	cmd.Execute()
}
