package main

import "github.com/jsphweid/deepj/cmd"

func main() {
	cmd.Execute()
}
