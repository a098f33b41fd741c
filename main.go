package main

import "github.com/dnitsch/aws-assume/cmd"

func main() {
	cmd.Execute()
}
